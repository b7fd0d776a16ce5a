//go:build !windows

package services

import "startctl/internal/startup"

type unsupportedController struct{}

// NewNativeController returns a Controller that reports ErrUnsupported.
func NewNativeController(startup.Logger) Controller { return unsupportedController{} }

func (unsupportedController) List() ([]Config, error)              { return nil, startup.ErrUnsupported }
func (unsupportedController) SetStartType(string, StartType) error { return startup.ErrUnsupported }
