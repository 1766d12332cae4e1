// Package catalog holds the static definition of the processing phases:
// their order, the role allowed to act in each one and its maximum
// duration in working days. A Catalog is read-only and safe to share.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/models"
	"gopkg.in/yaml.v3"
)

// Role is the capability allowed to act on a dossier in a phase.
type Role string

const (
	RoleAgentAntenne     Role = "AGENT_ANTENNE"
	RoleAgentGUC         Role = "AGENT_GUC"
	RoleAgentCommission  Role = "AGENT_COMMISSION"
	RoleServiceTechnique Role = "SERVICE_TECHNIQUE"
	// RoleAdmin may act in every phase.
	RoleAdmin Role = "ADMIN"
)

// Stage groups phases into the approval (AP) and realization (RP) halves
// of the process.
type Stage string

const (
	StageApproval    Stage = "AP"
	StageRealization Stage = "RP"
)

// Phase is one entry of the catalog. Status optionally overrides the
// dossier status derived from Stage.
type Phase struct {
	ID                     int                  `yaml:"id" json:"id"`
	Name                   string               `yaml:"name" json:"name"`
	Role                   Role                 `yaml:"role" json:"role"`
	Stage                  Stage                `yaml:"stage,omitempty" json:"stage,omitempty"`
	Status                 models.DossierStatus `yaml:"status,omitempty" json:"status,omitempty"`
	MaxDurationWorkingDays int                  `yaml:"max_duration_working_days" json:"max_duration_working_days"`
}

// HasDeadline reports whether the phase duration is enforced.
func (p Phase) HasDeadline() bool {
	return p.MaxDurationWorkingDays > 0
}

// StatusHint returns the dossier status implied by sitting in the phase.
func (p Phase) StatusHint() models.DossierStatus {
	if p.Status != "" {
		return p.Status
	}
	switch p.Stage {
	case StageApproval:
		return models.StatusInReview
	case StageRealization:
		return models.StatusInRealization
	default:
		return models.StatusSubmitted
	}
}

type document struct {
	Roles  map[Role]string `yaml:"roles"`
	Phases []Phase         `yaml:"phases"`
}

// Catalog is an ordered, dense set of phases numbered from 1.
type Catalog struct {
	phases []Phase
	roles  map[Role]string
}

//go:embed default.yaml
var defaultDefinition []byte

// Default returns the catalog of the subsidy program: four approval phases
// followed by four realization phases.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultDefinition))
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded definition: %v", err))
	}
	return c
}

// LoadFile reads a YAML catalog definition from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML catalog definition. Unknown keys are rejected.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty catalog definition", common.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: decode catalog: %v", common.ErrInvalidInput, err)
	}
	return newCatalog(doc.Phases, doc.Roles)
}

// New builds a catalog from phases listed in id order. Role display names
// default to the role codes.
func New(phases []Phase) (*Catalog, error) {
	return newCatalog(phases, nil)
}

func newCatalog(phases []Phase, roles map[Role]string) (*Catalog, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("%w: catalog has no phases", common.ErrInvalidInput)
	}
	for i, p := range phases {
		switch {
		case p.ID != i+1:
			return nil, fmt.Errorf("%w: phase at position %d has id %d, want %d", common.ErrInvalidInput, i+1, p.ID, i+1)
		case p.Name == "":
			return nil, fmt.Errorf("%w: phase %d has no name", common.ErrInvalidInput, p.ID)
		case p.Role == "":
			return nil, fmt.Errorf("%w: phase %d has no role", common.ErrInvalidInput, p.ID)
		case p.MaxDurationWorkingDays < 0:
			return nil, fmt.Errorf("%w: phase %d has negative duration", common.ErrInvalidInput, p.ID)
		case p.Status != "" && !p.Status.Valid():
			return nil, fmt.Errorf("%w: phase %d has unknown status %q", common.ErrInvalidInput, p.ID, p.Status)
		}
		if roles != nil {
			if _, ok := roles[p.Role]; !ok {
				return nil, fmt.Errorf("%w: phase %d uses undeclared role %q", common.ErrInvalidInput, p.ID, p.Role)
			}
		}
	}

	c := &Catalog{
		phases: append([]Phase(nil), phases...),
		roles:  make(map[Role]string, len(roles)),
	}
	for r, name := range roles {
		c.roles[r] = name
	}
	return c, nil
}

// Len returns the number of phases.
func (c *Catalog) Len() int { return len(c.phases) }

// Phases returns a copy of the phases in order.
func (c *Catalog) Phases() []Phase {
	return append([]Phase(nil), c.phases...)
}

// Get returns the phase with the given id or common.ErrInvalidPhase.
func (c *Catalog) Get(id int) (Phase, error) {
	if id < 1 || id > len(c.phases) {
		return Phase{}, fmt.Errorf("phase %d: %w", id, common.ErrInvalidPhase)
	}
	return c.phases[id-1], nil
}

// First returns the initial phase.
func (c *Catalog) First() Phase { return c.phases[0] }

// Last returns the terminal phase.
func (c *Catalog) Last() Phase { return c.phases[len(c.phases)-1] }

// Successor returns the phase after id, or nil when id is terminal.
func (c *Catalog) Successor(id int) (*Phase, error) {
	if _, err := c.Get(id); err != nil {
		return nil, err
	}
	if id == len(c.phases) {
		return nil, nil
	}
	p := c.phases[id]
	return &p, nil
}

// Predecessor returns the phase before id, or nil when id is the first one.
func (c *Catalog) Predecessor(id int) (*Phase, error) {
	if _, err := c.Get(id); err != nil {
		return nil, err
	}
	if id == 1 {
		return nil, nil
	}
	p := c.phases[id-2]
	return &p, nil
}

// RoleFor returns the role assigned to phase id.
func (c *Catalog) RoleFor(id int) (Role, error) {
	p, err := c.Get(id)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

// CanAct reports whether role may act on a dossier sitting in phase id.
// Administrators may act in every phase.
func (c *Catalog) CanAct(id int, role Role) bool {
	if role == RoleAdmin {
		return true
	}
	assigned, err := c.RoleFor(id)
	return err == nil && assigned == role
}

// RoleName returns the display name of role, or its code when none is
// declared.
func (c *Catalog) RoleName(role Role) string {
	if name, ok := c.roles[role]; ok && name != "" {
		return name
	}
	return string(role)
}
