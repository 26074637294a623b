//go:build !windows

package daemon

func newSCMController(id Identity, opts ...Option) (Controller, error) {
	return nil, ErrUnsupportedPlatform
}
