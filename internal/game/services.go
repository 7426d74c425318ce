package game

import (
	"fmt"
	"log"

	"distworld.dev/internal/bus"
	"distworld.dev/internal/config"
	"distworld.dev/internal/do"
	"distworld.dev/internal/sim"
)

// Services is the AI/UD process: it owns the privileged contact, the login
// manager, the world and every avatar authority view, and drives them from
// the authority scheduler.
type Services struct {
	Cfg   config.Config
	Log   *log.Logger
	Bus   *bus.Bus
	Repo  *do.Repository
	Sched *sim.Scheduler

	ep *bus.Endpoint
}

// NewServices attaches the services endpoint to the bus and seeds the static
// objects: the global anonymous contact, the root container, the login
// manager and the world. Interest registrations these trigger are satisfied
// asynchronously on the first ticks.
func NewServices(cfg config.Config, logger *log.Logger, b *bus.Bus, accounts CredentialChecker) (*Services, error) {
	deps := &Deps{
		Cfg:      cfg,
		Log:      logger,
		Agent:    b,
		Accounts: accounts,
		Tuning: sim.Tuning{
			Speed:         cfg.Avatar.Speed,
			RotationSpeed: cfg.Avatar.RotationSpeedDeg,
			Precision:     cfg.Avatar.PosPrecision,
			Bound:         cfg.Avatar.Bound,
		},
	}
	classes := ServerClasses(deps)
	ep := b.AttachInternal(cfg.Channels.Services, "services")
	repo := do.NewRepository(classes, ep, logger)
	deps.Repo = repo
	sched := sim.NewScheduler(repo)
	deps.Sched = sched

	s := &Services{Cfg: cfg, Log: logger, Bus: b, Repo: repo, Sched: sched, ep: ep}
	deps.Creator = s

	if err := s.createGlobal(ClassAnonymousContact, cfg.IDs.AnonymousContact); err != nil {
		return nil, err
	}
	if err := s.CreateDistObj(ClassRoot, cfg.IDs.Root, 0, 0); err != nil {
		return nil, err
	}
	if err := s.CreateDistObj(ClassLoginManager, cfg.IDs.LoginManager, cfg.IDs.Root, cfg.Zones.Login); err != nil {
		return nil, err
	}
	if err := s.CreateDistObj(ClassWorld, cfg.IDs.World, cfg.IDs.Root, cfg.Zones.World); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateDistObj creates the local authority view and announces the object
// cluster-wide, satisfying any matching interests.
func (s *Services) CreateDistObj(class string, doID, parentID, zoneID uint32) error {
	if _, err := s.Repo.Registry().Create(class, doID, parentID, zoneID, do.RoleAuthority); err != nil {
		return fmt.Errorf("create %s %d: %w", class, doID, err)
	}
	if err := s.Bus.CreateObject(s.ep.Channel(), class, doID, parentID, zoneID); err != nil {
		return fmt.Errorf("announce %s %d: %w", class, doID, err)
	}
	return nil
}

func (s *Services) createGlobal(class string, doID uint32) error {
	if _, err := s.Repo.Registry().Create(class, doID, 0, 0, do.RolePrivileged); err != nil {
		return fmt.Errorf("create %s %d: %w", class, doID, err)
	}
	if err := s.Bus.CreateGlobal(s.ep.Channel(), class, doID); err != nil {
		return fmt.Errorf("announce %s %d: %w", class, doID, err)
	}
	return nil
}
