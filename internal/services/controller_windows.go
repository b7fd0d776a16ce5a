//go:build windows

package services

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc/mgr"

	"startctl/internal/startup"
)

// SCMController talks to the local service control manager. Each call opens
// its own handles and closes them before returning.
type SCMController struct {
	logger startup.Logger
}

func NewNativeController(logger startup.Logger) Controller {
	return &SCMController{logger: logger}
}

func connect() (*mgr.Mgr, error) {
	h, err := windows.OpenSCManager(nil, nil, windows.SC_MANAGER_CONNECT|windows.SC_MANAGER_ENUMERATE_SERVICE)
	if err != nil {
		return nil, fmt.Errorf("%w: opening service control manager: %w", startup.ErrAccessDenied, err)
	}
	return &mgr.Mgr{Handle: h}, nil
}

func openService(m *mgr.Mgr, name string, access uint32) (*mgr.Service, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.OpenService(m.Handle, p, access)
	if err != nil {
		return nil, err
	}
	return &mgr.Service{Name: name, Handle: h}, nil
}

func (c *SCMController) List() ([]Config, error) {
	m, err := connect()
	if err != nil {
		return nil, err
	}
	defer m.Disconnect()

	names, err := m.ListServices()
	if err != nil {
		return nil, fmt.Errorf("enumerating services: %w", err)
	}

	var out []Config
	for _, name := range names {
		s, err := openService(m, name, windows.SERVICE_QUERY_CONFIG)
		if err != nil {
			c.logger.Debug("skipping service", "service", name, "error", err)
			continue
		}
		cfg, err := s.Config()
		s.Close()
		if err != nil {
			c.logger.Debug("skipping service", "service", name, "error", err)
			continue
		}
		out = append(out, Config{
			Name:        name,
			DisplayName: cfg.DisplayName,
			BinaryPath:  cfg.BinaryPathName,
			Description: cfg.Description,
			StartType:   StartType(cfg.StartType),
		})
	}
	return out, nil
}

func (c *SCMController) SetStartType(name string, st StartType) error {
	m, err := connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := openService(m, name, windows.SERVICE_CHANGE_CONFIG)
	if err != nil {
		return mapErr(name, err)
	}
	defer s.Close()

	err = windows.ChangeServiceConfig(s.Handle, windows.SERVICE_NO_CHANGE, uint32(st), windows.SERVICE_NO_CHANGE,
		nil, nil, nil, nil, nil, nil, nil)
	if err != nil {
		return mapErr(name, err)
	}
	return nil
}

func mapErr(name string, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: service %s: %w", startup.ErrPermissionDenied, name, err)
	case errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST):
		return fmt.Errorf("%w: service %s: %w", startup.ErrNotFound, name, err)
	}
	return fmt.Errorf("service %s: %w", name, err)
}
