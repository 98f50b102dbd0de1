package schema

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/errors"
	stringpool "github.com/rtstore/rtstore/pkg/strings"
)

// SchemaVersion is one registered version of a table schema.
type SchemaVersion struct {
	Version     int32       `json:"version"`
	Schema      *SchemaDesc `json:"schema"`
	Fingerprint string      `json:"fingerprint"`
	CreatedAt   time.Time   `json:"created_at"`
}

// CompatibilityMode defines which schema changes a table accepts.
type CompatibilityMode string

const (
	// CompatibilityNone allows any schema change
	CompatibilityNone CompatibilityMode = "NONE"
	// CompatibilityBackward ensures the new schema can read rows written with the old one
	CompatibilityBackward CompatibilityMode = "BACKWARD"
	// CompatibilityForward ensures the old schema can read rows written with the new one
	CompatibilityForward CompatibilityMode = "FORWARD"
	// CompatibilityFull requires both backward and forward compatibility
	CompatibilityFull CompatibilityMode = "FULL"
)

// ParseCompatibilityMode parses a mode name, case sensitive.
func ParseCompatibilityMode(s string) (CompatibilityMode, error) {
	switch m := CompatibilityMode(s); m {
	case CompatibilityNone, CompatibilityBackward, CompatibilityForward, CompatibilityFull:
		return m, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unknown compatibility mode %q", s)
	}
}

// Registry keeps the version history of every table schema.
type Registry struct {
	mu sync.RWMutex

	// table id -> versions, oldest first
	schemas       map[string][]*SchemaVersion
	compatibility map[string]CompatibilityMode
	logger        *zap.Logger
	now           func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		schemas:       make(map[string][]*SchemaVersion),
		compatibility: make(map[string]CompatibilityMode),
		logger:        logger,
		now:           time.Now,
	}
}

// Register adds sd as the newest version of table and returns it. The first
// version keeps the version number sd declares; later ones are numbered one
// past the latest. A schema identical to a registered version returns that
// version unchanged. sd is copied.
func (r *Registry) Register(table string, sd *SchemaDesc) (*SchemaVersion, error) {
	if sd == nil || len(sd.Columns) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "schema has no columns").WithDetail("table", table)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fp := Fingerprint(sd)
	versions := r.schemas[table]
	for _, v := range versions {
		if v.Fingerprint == fp {
			return v, nil
		}
	}

	next := sd.Version
	if len(versions) > 0 {
		latest := versions[len(versions)-1]
		mode := r.compatibilityLocked(table)
		if err := CheckCompatibility(latest.Schema, sd, mode); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "schema change rejected").
				WithDetail("table", table).
				WithDetail("compatibility", string(mode))
		}
		next = latest.Version + 1
	}

	cp := &SchemaDesc{Columns: append([]ColumnDesc(nil), sd.Columns...), Version: next}
	v := &SchemaVersion{Version: next, Schema: cp, Fingerprint: fp, CreatedAt: r.now().UTC()}
	r.schemas[table] = append(versions, v)

	r.logger.Info("schema registered",
		zap.String("table", table),
		zap.Int32("version", next),
		zap.String("fingerprint", fp))
	return v, nil
}

// Latest returns the newest version of table.
func (r *Registry) Latest(table string) (*SchemaVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.schemas[table]
	if len(versions) == 0 {
		return nil, errors.New(errors.ErrorTypeNotFound, "table schema not found").WithDetail("table", table)
	}
	return versions[len(versions)-1], nil
}

// Get returns a specific version of table.
func (r *Registry) Get(table string, version int32) (*SchemaVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.schemas[table] {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "schema version %d not found", version).
		WithDetail("table", table)
}

// History returns every version of table, oldest first.
func (r *Registry) History(table string) ([]*SchemaVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.schemas[table]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "table schema not found").WithDetail("table", table)
	}
	out := make([]*SchemaVersion, len(versions))
	copy(out, versions)
	return out, nil
}

// SetCompatibility sets the mode checked on the next Register of table.
func (r *Registry) SetCompatibility(table string, mode CompatibilityMode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.compatibility[table] = mode
	r.logger.Debug("compatibility mode set",
		zap.String("table", table),
		zap.String("mode", string(mode)))
}

// Compatibility returns the mode of table, BACKWARD unless set.
func (r *Registry) Compatibility(table string) CompatibilityMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.compatibilityLocked(table)
}

// Drop forgets table.
func (r *Registry) Drop(table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schemas, table)
	delete(r.compatibility, table)
}

// RegistryState is the serializable content of a Registry.
type RegistryState struct {
	Schemas       map[string][]*SchemaVersion  `json:"schemas"`
	Compatibility map[string]CompatibilityMode `json:"compatibility,omitempty"`
}

// Export returns a copy of the registry content.
func (r *Registry) Export() RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := RegistryState{
		Schemas:       make(map[string][]*SchemaVersion, len(r.schemas)),
		Compatibility: make(map[string]CompatibilityMode, len(r.compatibility)),
	}
	for t, vs := range r.schemas {
		st.Schemas[t] = append([]*SchemaVersion(nil), vs...)
	}
	for t, m := range r.compatibility {
		st.Compatibility[t] = m
	}
	return st
}

// Import replaces the registry content with st after checking that every
// history is ordered and every schema maps to Arrow.
func (r *Registry) Import(st RegistryState) error {
	schemas := make(map[string][]*SchemaVersion, len(st.Schemas))
	for t, vs := range st.Schemas {
		if len(vs) == 0 {
			continue
		}
		for _, v := range vs {
			if v == nil || v.Schema == nil {
				return errors.New(errors.ErrorTypeValidation, "schema history has an empty version").WithDetail("table", t)
			}
		}
		sorted := append([]*SchemaVersion(nil), vs...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
		for i, v := range sorted {
			if i > 0 && sorted[i-1].Version == v.Version {
				return errors.Newf(errors.ErrorTypeValidation, "schema version %d registered twice", v.Version).
					WithDetail("table", t)
			}
			if _, err := ToArrowSchema(v.Schema); err != nil {
				return err
			}
			v.Fingerprint = Fingerprint(v.Schema)
		}
		schemas[t] = sorted
	}
	compat := make(map[string]CompatibilityMode, len(st.Compatibility))
	for t, m := range st.Compatibility {
		if _, err := ParseCompatibilityMode(string(m)); err != nil {
			return err
		}
		compat[t] = m
	}

	r.mu.Lock()
	r.schemas = schemas
	r.compatibility = compat
	r.mu.Unlock()
	return nil
}

func (r *Registry) compatibilityLocked(table string) CompatibilityMode {
	if mode, ok := r.compatibility[table]; ok {
		return mode
	}
	return CompatibilityBackward
}

// Fingerprint identifies a column list by name, type and nullability in
// order. The version number is not part of it.
func Fingerprint(sd *SchemaDesc) string {
	return stringpool.BuildString(stringpool.SizeFor(len(sd.Columns)*16), func(b *stringpool.Builder) {
		for _, c := range sd.Columns {
			b.WriteString(c.Name)
			_ = b.WriteByte(':')
			b.WriteString(strconv.Itoa(int(c.Type)))
			if c.Nullable {
				_ = b.WriteByte('?')
			}
			_ = b.WriteByte(';')
		}
	})
}

// CheckCompatibility reports whether moving from old to next is allowed
// under mode. Columns are matched by name and a column may never change
// type. Backward forbids dropping or adding non-nullable columns; forward
// forbids adding them.
func CheckCompatibility(old, next *SchemaDesc, mode CompatibilityMode) error {
	switch mode {
	case CompatibilityNone:
		return nil
	case CompatibilityBackward:
		return checkBackward(old, next)
	case CompatibilityForward:
		return checkForward(old, next)
	case CompatibilityFull:
		if err := checkBackward(old, next); err != nil {
			return err
		}
		return checkForward(old, next)
	default:
		return errors.Newf(errors.ErrorTypeValidation, "unknown compatibility mode %q", mode)
	}
}

func columnsByName(sd *SchemaDesc) map[string]ColumnDesc {
	m := make(map[string]ColumnDesc, len(sd.Columns))
	for _, c := range sd.Columns {
		m[c.Name] = c
	}
	return m
}

func checkBackward(old, next *SchemaDesc) error {
	oldCols, nextCols := columnsByName(old), columnsByName(next)

	for name, oc := range oldCols {
		nc, ok := nextCols[name]
		if !ok {
			if !oc.Nullable {
				return errors.Newf(errors.ErrorTypeValidation, "cannot remove non-nullable column %q", name)
			}
			continue
		}
		if nc.Type != oc.Type {
			return errors.Newf(errors.ErrorTypeValidation, "incompatible type change for column %q: %s -> %s",
				name, oc.Type, nc.Type)
		}
	}
	for name, nc := range nextCols {
		if _, ok := oldCols[name]; !ok && !nc.Nullable {
			return errors.Newf(errors.ErrorTypeValidation, "cannot add non-nullable column %q", name)
		}
	}
	return nil
}

func checkForward(old, next *SchemaDesc) error {
	oldCols, nextCols := columnsByName(old), columnsByName(next)

	for name, nc := range nextCols {
		oc, ok := oldCols[name]
		if !ok {
			if !nc.Nullable {
				return errors.Newf(errors.ErrorTypeValidation, "cannot add non-nullable column %q", name)
			}
			continue
		}
		if nc.Type != oc.Type {
			return errors.Newf(errors.ErrorTypeValidation, "incompatible type change for column %q: %s -> %s",
				name, oc.Type, nc.Type)
		}
	}
	return nil
}
