package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tropicly/labeler/internal/logging"
)

// Status is a point-in-time view of the labeling session.
type Status struct {
	Time      time.Time `json:"time"`
	FileName  string    `json:"fileName"`
	Cursor    int       `json:"cursor"`
	Total     int       `json:"total"`
	Labeled   int       `json:"labeled"`
	Validated int       `json:"validated"`
	Clients   int       `json:"clients"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	// Status is called once per tick.
	Status     func() Status
	Interval   time.Duration
	StatusFile string
}

// Service periodically writes the session status to a file.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// WriteStatus renders the current status into the status file.
func (s *Service) WriteStatus() (Status, error) {
	st := s.deps.Status()
	if st.Time.IsZero() {
		st.Time = time.Now()
	}
	if s.deps.StatusFile == "" {
		return st, nil
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return st, fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := os.WriteFile(s.deps.StatusFile, append(data, '\n'), 0644); err != nil {
		return st, fmt.Errorf("error writing status file: %w", err)
	}
	return st, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	if s.deps.Status == nil {
		return fmt.Errorf("status func not set")
	}
	if s.deps.Interval <= 0 {
		return fmt.Errorf("invalid monitor interval %s", s.deps.Interval)
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st, err := s.WriteStatus()
				if err != nil {
					logger.Error("Error writing status", "error", err)
					continue
				}
				if st.FileName == "" {
					continue
				}
				logger.Debug("Session status",
					"file", st.FileName,
					"position", st.Cursor+1,
					"total", st.Total,
					"validated", st.Validated,
					"clients", st.Clients,
				)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}
