package control

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/matheus3301/postbot/internal/lock"
	"github.com/matheus3301/postbot/internal/profile"
	"github.com/matheus3301/postbot/internal/store"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Daemon health as shown to operators.
const (
	HealthStopped     = "STOPPED"
	HealthUnreachable = "UNREACHABLE"
)

const probeTimeout = 2 * time.Second

// Snapshot is the state of a profile at one point in time.
type Snapshot struct {
	Profile   string
	PID       int
	Health    string
	Ready     string
	Scheduled []store.ScheduledPost
	Published []store.PublishedPost
	Jobs      int
	NextRun   time.Time
	TakenAt   time.Time

	// HealthResponse is the raw overall check, nil when the daemon is down.
	HealthResponse *healthpb.HealthCheckResponse
}

// Running reports whether a daemon holds the profile lock.
func (s *Snapshot) Running() bool { return s.PID > 0 }

// Paths locates a profile's files. Tests point it at a temp dir.
type Paths struct {
	Dir    string
	Socket string
	DB     string
}

// ProfilePaths returns the default paths of a profile.
func ProfilePaths(name string) Paths {
	return Paths{Dir: profile.Dir(name), Socket: profile.SocketPath(name), DB: profile.DBPath(name)}
}

// Take builds a snapshot. A stopped daemon or a missing database is not an
// error; the snapshot simply has less in it.
func Take(ctx context.Context, name string, paths Paths, publishedLimit int) (*Snapshot, error) {
	s := &Snapshot{Profile: name, Health: HealthStopped, TakenAt: time.Now()}

	if lock.IsHeld(paths.Dir) {
		s.PID = lock.Holder(paths.Dir)
		probe(ctx, paths.Socket, s)
	}

	if _, err := os.Stat(paths.DB); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	db, err := store.OpenReadOnly(paths.DB)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	if s.Scheduled, err = db.ListScheduled(); err != nil {
		return nil, err
	}
	if s.Published, err = db.ListPublished(publishedLimit); err != nil {
		return nil, err
	}
	if s.Jobs, err = db.CountJobs(); err != nil {
		return nil, err
	}
	if s.NextRun, err = db.NextRunAt(); err != nil {
		return nil, err
	}
	return s, nil
}

func probe(ctx context.Context, socket string, s *Snapshot) {
	s.Health = HealthUnreachable
	c, err := Dial(socket)
	if err != nil {
		return
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	resp, err := c.Check(ctx, "")
	if err != nil {
		return
	}
	s.HealthResponse = resp
	s.Health = resp.GetStatus().String()
	if ready, err := c.Check(ctx, ServiceReady); err == nil {
		s.Ready = ready.GetStatus().String()
	}
}
