package config

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/goliatone/go-store/pkg/medium"
)

// Open builds the configured medium. The returned close function releases
// every resource Open acquired and is never nil.
func (m Medium) Open() (medium.Medium, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(m.Kind) {
	case MediumSession:
		return medium.SharedSession(), noop, nil
	case MediumFile:
		f, err := medium.NewFile(m.Dir)
		if err != nil {
			return nil, noop, err
		}
		return f, noop, nil
	case MediumSQLite:
		s, err := medium.NewSQLite(m.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case MediumNATS:
		nc, err := nats.Connect(m.URL)
		if err != nil {
			return nil, noop, fmt.Errorf("config: nats connect %s: %w", m.URL, err)
		}
		n, err := medium.NewNATS(medium.NATSConfig{Conn: nc, Bucket: m.Bucket})
		if err != nil {
			nc.Close()
			return nil, noop, err
		}
		return n, func() error {
			err := n.Close()
			nc.Close()
			return err
		}, nil
	default:
		return nil, noop, fmt.Errorf("config: unknown medium %q", m.Kind)
	}
}
