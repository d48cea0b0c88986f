//go:build !linux

package reactor

import "errors"

// NewReactor returns an error for unsupported platforms
func NewReactor() (IReactor, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
