package authz

import (
	"context"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/sirupsen/logrus"
)

// Config holds everything needed to construct a Service.
type Config struct {
	ModelPath  string
	PolicyPath string
	Mode       Mode
	Logger     *logrus.Logger
}

func (c Config) validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("authz: model path is required")
	}
	if c.PolicyPath == "" {
		return fmt.Errorf("authz: policy path is required")
	}
	return nil
}

// Service answers hasPermission questions against a Casbin policy. It is the
// single permission oracle for the whole workflow.
type Service struct {
	cfg      Config
	enforcer *casbin.Enforcer
	logger   *logrus.Entry

	mu   sync.RWMutex
	mode Mode
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "authz")
	} else {
		logger = logrus.WithField("component", "authz")
	}

	enf, err := casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	if err := enf.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz: failed to load policies: %w", err)
	}

	mode := cfg.Mode
	if mode == "" {
		mode = ModeEnforce
	}

	return &Service{
		cfg:      cfg,
		enforcer: enf,
		logger:   logger,
		mode:     mode,
	}, nil
}

func (s *Service) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Service) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Check evaluates the request without applying mode semantics.
func (s *Service) Check(_ context.Context, req Request) (bool, error) {
	allowed, err := s.enforcer.Enforce(req.Subject, req.Object, req.Action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed for %s: %w", req.Node(), err)
	}
	return allowed, nil
}

// Authorize returns an error if the request is denied under the current mode.
func (s *Service) Authorize(ctx context.Context, req Request) error {
	switch s.Mode() {
	case ModeDisabled:
		return nil
	case ModeShadow:
		allowed, err := s.Check(ctx, req)
		if err != nil {
			return err
		}
		if !allowed {
			s.logger.WithContext(ctx).WithFields(logrus.Fields{
				"subject": req.Subject,
				"object":  req.Object,
				"action":  req.Action,
				"mode":    ModeShadow,
			}).Warn("authz shadow deny")
		}
		return nil
	default:
		allowed, err := s.Check(ctx, req)
		if err != nil {
			return err
		}
		if !allowed {
			return forbiddenError(req)
		}
		return nil
	}
}

var (
	defaultMu      sync.RWMutex
	defaultService *Service
)

// Setup installs the process-wide authorization service.
func Setup(s *Service) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultService = s
}

// Authorize checks the request against the process-wide service. An
// unconfigured service is a deny, never a silent allow.
func Authorize(ctx context.Context, req Request) error {
	defaultMu.RLock()
	s := defaultService
	defaultMu.RUnlock()
	if s == nil {
		return ErrNotConfigured
	}
	return s.Authorize(ctx, req)
}
