package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	platformotel "github.com/louisbranch/turnkeeper/internal/platform/otel"
	"github.com/louisbranch/turnkeeper/internal/services/combat/directory"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/combat"
	"github.com/louisbranch/turnkeeper/internal/services/combat/domain/roster"
	"github.com/louisbranch/turnkeeper/internal/services/combat/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for combat spans.
const TracerName = "turnkeeper/combat"

// DefaultInitiativeDie is rolled when a character lacks the initiative
// attribute.
const DefaultInitiativeDie = directory.BaseDie

const maxRosterRetries = 3

var errRosterChanged = errors.New("roster changed while rolling initiative")

// Roller rolls one die.
type Roller interface {
	Roll(sides int) (int, error)
}

// ParticipantSpec names a character to put in combat. A nil Initiative is
// rolled from the character's initiative attribute die.
type ParticipantSpec struct {
	CharacterID string
	Initiative  *int
}

// Config wires a Service.
type Config struct {
	Store     storage.SessionStore
	Directory directory.Directory
	Roller    Roller
	// Tracer defaults to the global provider's combat tracer.
	Tracer trace.Tracer
	// Logf defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Service coordinates combat sessions.
type Service struct {
	store     storage.SessionStore
	directory directory.Directory
	roller    Roller
	tracer    trace.Tracer
	logf      func(format string, args ...any)
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("combat store is required")
	}
	if cfg.Directory == nil {
		return nil, fmt.Errorf("character directory is required")
	}
	if cfg.Roller == nil {
		return nil, fmt.Errorf("dice roller is required")
	}
	if cfg.Tracer == nil {
		cfg.Tracer = platformotel.Tracer(TracerName)
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Service{
		store:     cfg.Store,
		directory: cfg.Directory,
		roller:    cfg.Roller,
		tracer:    cfg.Tracer,
		logf:      cfg.Logf,
	}, nil
}

// Directory returns the character directory the service rolls from.
func (s *Service) Directory() directory.Directory {
	return s.directory
}

// Get returns the running session for guildID.
func (s *Service) Get(ctx context.Context, guildID string) (_ combat.Session, err error) {
	ctx, span := s.start(ctx, "combat.Get", guildID)
	defer func() { finish(span, err) }()

	session, err := s.store.GetSession(ctx, guildID)
	return session, noActive(err)
}

// Start rolls initiative for specs and creates the guild's session.
func (s *Service) Start(ctx context.Context, guildID string, specs []ParticipantSpec, attributeID string) (_ combat.Session, err error) {
	ctx, span := s.start(ctx, "combat.Start", guildID)
	defer func() { finish(span, err) }()

	attributeID = strings.TrimSpace(attributeID)
	if attributeID == "" {
		attributeID = combat.DefaultInitiativeAttributeID
	}
	span.SetAttributes(attribute.String("combat.initiative_attribute", attributeID))

	specs = uniqueSpecs(specs)
	if len(specs) == 0 {
		return combat.Session{}, combat.ErrEmptyRoster
	}
	if _, err := s.store.GetSession(ctx, guildID); err == nil {
		return combat.Session{}, combat.ErrSessionAlreadyActive
	} else if !errors.Is(err, storage.ErrNotFound) {
		return combat.Session{}, err
	}

	participants := make([]roster.Participant, 0, len(specs))
	for _, spec := range specs {
		initiative, err := s.initiative(ctx, spec, attributeID)
		if err != nil {
			return combat.Session{}, err
		}
		participants = append(participants, roster.Participant{CharacterID: spec.CharacterID, Initiative: initiative})
	}

	session, err := combat.New(guildID, attributeID, participants)
	if err != nil {
		return combat.Session{}, err
	}
	return s.store.CreateSession(ctx, session)
}

// Advance passes the turn to the next participant.
func (s *Service) Advance(ctx context.Context, guildID string) (_ combat.Session, err error) {
	ctx, span := s.start(ctx, "combat.Advance", guildID)
	defer func() { finish(span, err) }()

	session, err := s.store.UpdateSession(ctx, guildID, combat.Advance)
	return session, noActive(err)
}

// Rewind passes the turn back to the previous participant.
func (s *Service) Rewind(ctx context.Context, guildID string) (_ combat.Session, err error) {
	ctx, span := s.start(ctx, "combat.Rewind", guildID)
	defer func() { finish(span, err) }()

	session, err := s.store.UpdateSession(ctx, guildID, combat.Rewind)
	return session, noActive(err)
}

// End removes the guild's session. Ending twice is not an error.
func (s *Service) End(ctx context.Context, guildID string) (err error) {
	ctx, span := s.start(ctx, "combat.End", guildID)
	defer func() { finish(span, err) }()

	return s.store.DeleteSession(ctx, guildID)
}

// SetParticipants replaces the roster. Only characters not already in combat
// are rolled.
func (s *Service) SetParticipants(ctx context.Context, guildID string, specs []ParticipantSpec) (_ combat.Session, err error) {
	ctx, span := s.start(ctx, "combat.SetParticipants", guildID)
	defer func() { finish(span, err) }()

	specs = uniqueSpecs(specs)
	for attempt := 0; attempt < maxRosterRetries; attempt++ {
		current, err := s.store.GetSession(ctx, guildID)
		if err != nil {
			return combat.Session{}, noActive(err)
		}

		rolled := make(map[string]int, len(specs))
		for _, spec := range specs {
			if roster.Contains(current.Participants, spec.CharacterID) {
				continue
			}
			initiative, err := s.initiative(ctx, spec, current.InitiativeAttributeID)
			if err != nil {
				return combat.Session{}, err
			}
			rolled[spec.CharacterID] = initiative
		}

		session, err := s.store.UpdateSession(ctx, guildID, func(current combat.Session) (combat.Session, error) {
			incoming := make([]roster.Participant, 0, len(specs))
			for _, spec := range specs {
				if roster.Contains(current.Participants, spec.CharacterID) {
					incoming = append(incoming, roster.Participant{CharacterID: spec.CharacterID})
					continue
				}
				initiative, ok := rolled[spec.CharacterID]
				if !ok {
					return combat.Session{}, errRosterChanged
				}
				incoming = append(incoming, roster.Participant{CharacterID: spec.CharacterID, Initiative: initiative})
			}
			return combat.SetParticipants(current, incoming)
		})
		if errors.Is(err, errRosterChanged) {
			continue
		}
		return session, noActive(err)
	}
	return combat.Session{}, fmt.Errorf("set participants: %w", errRosterChanged)
}

// AddParticipant rolls (unless initiative is given) and inserts one character.
func (s *Service) AddParticipant(ctx context.Context, guildID, characterID string, initiative *int) (_ combat.Session, err error) {
	ctx, span := s.start(ctx, "combat.AddParticipant", guildID)
	defer func() { finish(span, err) }()
	span.SetAttributes(attribute.String("combat.character_id", characterID))

	current, err := s.store.GetSession(ctx, guildID)
	if err != nil {
		return combat.Session{}, noActive(err)
	}
	characterID = strings.TrimSpace(characterID)
	if roster.Contains(current.Participants, characterID) {
		return combat.Session{}, combat.ErrParticipantExists
	}

	value, err := s.initiative(ctx, ParticipantSpec{CharacterID: characterID, Initiative: initiative}, current.InitiativeAttributeID)
	if err != nil {
		return combat.Session{}, err
	}
	session, err := s.store.UpdateSession(ctx, guildID, func(current combat.Session) (combat.Session, error) {
		return combat.AddParticipant(current, roster.Participant{CharacterID: characterID, Initiative: value})
	})
	return session, noActive(err)
}

// RemoveParticipant takes one character out of combat.
func (s *Service) RemoveParticipant(ctx context.Context, guildID, characterID string) (_ combat.Session, err error) {
	ctx, span := s.start(ctx, "combat.RemoveParticipant", guildID)
	defer func() { finish(span, err) }()
	span.SetAttributes(attribute.String("combat.character_id", characterID))

	session, err := s.store.UpdateSession(ctx, guildID, func(current combat.Session) (combat.Session, error) {
		return combat.RemoveParticipant(current, characterID)
	})
	return session, noActive(err)
}

// SetParticipantInitiative overrides one participant's initiative.
func (s *Service) SetParticipantInitiative(ctx context.Context, guildID, characterID string, initiative int) (_ combat.Session, err error) {
	ctx, span := s.start(ctx, "combat.SetParticipantInitiative", guildID)
	defer func() { finish(span, err) }()
	span.SetAttributes(attribute.String("combat.character_id", characterID))

	session, err := s.store.UpdateSession(ctx, guildID, func(current combat.Session) (combat.Session, error) {
		return combat.SetInitiative(current, characterID, initiative)
	})
	return session, noActive(err)
}

func (s *Service) initiative(ctx context.Context, spec ParticipantSpec, attributeID string) (int, error) {
	character, err := s.directory.Lookup(ctx, spec.CharacterID)
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", spec.CharacterID, err)
	}
	if spec.Initiative != nil {
		return *spec.Initiative, nil
	}

	die, ok := character.AttributeDie(attributeID)
	if !ok {
		s.logf("warn: character %q has no %q attribute die; rolling d%d", character.ID, attributeID, DefaultInitiativeDie)
		die = DefaultInitiativeDie
	}
	value, err := s.roller.Roll(die)
	if err != nil {
		return 0, fmt.Errorf("roll initiative for %s: %w", character.ID, err)
	}
	return value, nil
}

func (s *Service) start(ctx context.Context, name, guildID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("guild.id", guildID)))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func uniqueSpecs(specs []ParticipantSpec) []ParticipantSpec {
	out := make([]ParticipantSpec, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		spec.CharacterID = strings.TrimSpace(spec.CharacterID)
		if spec.CharacterID == "" {
			continue
		}
		if _, ok := seen[spec.CharacterID]; ok {
			continue
		}
		seen[spec.CharacterID] = struct{}{}
		out = append(out, spec)
	}
	return out
}

func noActive(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return combat.ErrNoActiveSession
	}
	return err
}
