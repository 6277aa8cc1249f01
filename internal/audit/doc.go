// Package audit records runtime control changes, such as effect switches,
// settings updates, overrides and direct colour writes, in the audit_log
// table so operators can see who changed the lighting and when.
package audit
