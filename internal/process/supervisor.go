package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of the supervised command.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusBackoff  Status = "backoff"
	StatusFailed   Status = "failed"
)

// Defaults applied by NewSupervisor to zero Config fields.
const (
	DefaultRestartDelay        = time.Second
	DefaultMaxRestartDelay     = time.Minute
	DefaultStableThreshold     = 30 * time.Second
	DefaultGracefulTimeout     = 5 * time.Second
	DefaultHealthCheckInterval = 10 * time.Second

	// maxConsecutiveHealthFailures kills the helper after this many failed checks.
	maxConsecutiveHealthFailures = 3

	healthCheckTimeout = 5 * time.Second
	outputBufferSize   = 4096
)

var (
	// ErrNoCommand is returned by Run when Config.Command is empty.
	ErrNoCommand = errors.New("process: no command configured")

	// ErrRestartsExhausted is returned by Run when MaxRestarts is reached.
	ErrRestartsExhausted = errors.New("process: restart attempts exhausted")

	// ErrUnhealthy wraps the exit of a helper killed by its health check.
	ErrUnhealthy = errors.New("process: health check failed")
)

// Config holds configuration for a supervised command.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Command is the executable followed by its arguments.
	Command []string

	// Env are additional environment variables (key=value format).
	Env []string

	// RestartDelay is the first backoff step; it doubles per consecutive
	// failure up to MaxRestartDelay.
	RestartDelay    time.Duration
	MaxRestartDelay time.Duration

	// StableThreshold is the uptime after which the backoff resets.
	StableThreshold time.Duration

	// MaxRestarts limits consecutive restarts. 0 means unlimited.
	MaxRestarts int

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// HealthCheck is polled while the helper runs. nil disables it.
	HealthCheck         func(ctx context.Context) error
	HealthCheckInterval time.Duration
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Supervisor keeps one command running until its context ends.
type Supervisor struct {
	config Config
	logger Logger

	mu        sync.RWMutex
	status    Status
	pid       int
	restarts  int
	lastError error
	startTime time.Time
}

// NewSupervisor creates a supervisor, applying defaults to zero fields.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.MaxRestartDelay <= 0 {
		cfg.MaxRestartDelay = DefaultMaxRestartDelay
	}
	if cfg.MaxRestartDelay < cfg.RestartDelay {
		cfg.MaxRestartDelay = cfg.RestartDelay
	}
	if cfg.StableThreshold <= 0 {
		cfg.StableThreshold = DefaultStableThreshold
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = DefaultGracefulTimeout
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = DefaultHealthCheckInterval
	}

	return &Supervisor{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger. Call before Run.
func (s *Supervisor) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Run starts the command and restarts it whenever it exits, until ctx is
// cancelled. Cancellation terminates the process group and returns nil.
//
// Returns:
//   - error: ErrNoCommand, or ErrRestartsExhausted wrapping the last exit
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.config.Command) == 0 {
		return ErrNoCommand
	}

	failures := 0
	for {
		started := time.Now()
		err := s.runOnce(ctx)

		if ctx.Err() != nil {
			s.setStatus(StatusStopped, nil)
			s.logger.Info("process stopped", "name", s.config.Name)
			return nil
		}

		if time.Since(started) >= s.config.StableThreshold {
			failures = 0
		}
		failures++

		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()

		if s.config.MaxRestarts > 0 && failures > s.config.MaxRestarts {
			s.setStatus(StatusFailed, err)
			s.logger.Error("max restart attempts reached",
				"name", s.config.Name,
				"attempts", failures-1,
				"error", err,
			)
			return fmt.Errorf("%w: %s: %w", ErrRestartsExhausted, s.config.Name, err)
		}

		delay := s.calculateBackoffDelay(failures)
		s.setStatus(StatusBackoff, err)
		s.logger.Warn("process exited, restarting",
			"name", s.config.Name,
			"error", err,
			"attempt", failures,
			"delay", delay.String(),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setStatus(StatusStopped, err)
			return nil
		case <-timer.C:
		}
	}
}

// calculateBackoffDelay returns RestartDelay doubled per prior attempt,
// capped at MaxRestartDelay.
func (s *Supervisor) calculateBackoffDelay(attempt int) time.Duration {
	delay := s.config.RestartDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.config.MaxRestartDelay {
			return s.config.MaxRestartDelay
		}
	}
	return delay
}

// runOnce starts the command and waits for it to exit, fail its health
// check, or be cancelled.
func (s *Supervisor) runOnce(ctx context.Context) error {
	s.setStatus(StatusStarting, nil)

	//nolint:gosec // Command comes from the operator's configuration
	cmd := exec.Command(s.config.Command[0], s.config.Command[1:]...)

	// Own process group so shutdown reaches the helper's children too
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if s.config.Env != nil {
		cmd.Env = append(os.Environ(), s.config.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.config.Name, err)
	}

	s.mu.Lock()
	s.status = StatusRunning
	s.pid = cmd.Process.Pid
	s.startTime = time.Now()
	s.mu.Unlock()

	s.logger.Info("process started", "name", s.config.Name, "pid", cmd.Process.Pid)

	var output sync.WaitGroup
	output.Add(2)
	go s.captureOutput("stdout", stdout, &output)
	go s.captureOutput("stderr", stderr, &output)

	exitCh := make(chan error, 1)
	go func() {
		output.Wait()
		exitCh <- cmd.Wait()
	}()

	err = s.watch(ctx, cmd, exitCh)

	s.mu.Lock()
	s.pid = 0
	s.mu.Unlock()
	return err
}

// watch blocks until the process exits. It terminates the process on
// cancellation and kills it after repeated health check failures.
func (s *Supervisor) watch(ctx context.Context, cmd *exec.Cmd, exitCh <-chan error) error {
	var tick <-chan time.Time
	if s.config.HealthCheck != nil {
		ticker := time.NewTicker(s.config.HealthCheckInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	consecutiveFailures := 0
	for {
		select {
		case err := <-exitCh:
			if err == nil {
				return fmt.Errorf("%s exited", s.config.Name)
			}
			return err

		case <-ctx.Done():
			s.terminate(cmd.Process.Pid, exitCh)
			return ctx.Err()

		case <-tick:
			checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
			err := s.config.HealthCheck(checkCtx)
			cancel()

			if err == nil {
				if consecutiveFailures > 0 {
					s.logger.Info("health check recovered",
						"name", s.config.Name,
						"previous_failures", consecutiveFailures,
					)
				}
				consecutiveFailures = 0
				continue
			}

			consecutiveFailures++
			s.logger.Warn("health check failed",
				"name", s.config.Name,
				"error", err,
				"consecutive_failures", consecutiveFailures,
			)
			if consecutiveFailures >= maxConsecutiveHealthFailures {
				s.logger.Error("health check failed repeatedly, killing process", "name", s.config.Name)
				s.terminate(cmd.Process.Pid, exitCh)
				return fmt.Errorf("%w: %w", ErrUnhealthy, err)
			}
		}
	}
}

// terminate sends SIGTERM to the process group, escalating to SIGKILL after
// GracefulTimeout, and waits for the exit.
func (s *Supervisor) terminate(pid int, exitCh <-chan error) {
	// Negative pid signals the whole group created via Setpgid
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("failed to send SIGTERM to process group", "name", s.config.Name, "error", err)
	}

	timer := time.NewTimer(s.config.GracefulTimeout)
	defer timer.Stop()

	select {
	case <-exitCh:
		return
	case <-timer.C:
		s.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", s.config.Name,
			"timeout", s.config.GracefulTimeout.String(),
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Error("failed to kill process group", "name", s.config.Name, "error", err)
	}
	<-exitCh
}

// captureOutput logs the helper's output at debug level.
func (s *Supervisor) captureOutput(stream string, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.logger.Debug("process output",
				"name", s.config.Name,
				"stream", stream,
				"output", string(buf[:n]),
			)
		}
		if err != nil {
			return
		}
	}
}

func (s *Supervisor) setStatus(status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if err != nil {
		s.lastError = err
	}
}

// Status returns the current status of the supervised command.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Stats is a snapshot of the supervisor.
type Stats struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	Restarts  int           `json:"restarts"`
	LastError string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the supervised command.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Name:     s.config.Name,
		Status:   s.status,
		PID:      s.pid,
		Restarts: s.restarts,
	}
	if s.status == StatusRunning {
		stats.Uptime = time.Since(s.startTime)
	}
	if s.lastError != nil {
		stats.LastError = s.lastError.Error()
	}
	return stats
}

// HealthCheck reports an error unless the command is running.
func (s *Supervisor) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s health check: %w", s.config.Name, err)
	}
	if st := s.Status(); st != StatusRunning {
		return fmt.Errorf("%s is %s", s.config.Name, st)
	}
	return nil
}
