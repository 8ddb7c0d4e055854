package opstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gridmap/internal/regrid"
)

// ErrNotFound is returned when no operator has the requested id.
var ErrNotFound = errors.New("operator not found")

// timeLayout has a fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestamp scans created_at. The sqlite driver hands TIMESTAMP columns
// back as time.Time when it can parse them and as text otherwise.
type timestamp struct {
	time.Time
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("unsupported created_at type %T", src)
	}
}

func (ts *timestamp) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	ts.Time = t.UTC()
	return nil
}

// OperatorInfo summarises a stored operator.
type OperatorInfo struct {
	ID          uuid.UUID
	Label       string
	CreatedAt   time.Time
	Method      regrid.Method
	CoordSys    regrid.CoordSys
	SrcShape    []int
	DstShape    []int
	WeightCount int
}

// Save stores op under its id, replacing any operator with the same id.
func (s *Store) Save(op *regrid.Operator, label string) (uuid.UUID, error) {
	spec := op.Spec()
	md, err := encodeMetadata(spec)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode operator %s: %w", spec.ID, err)
	}
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode operator %s: %w", spec.ID, err)
	}
	blob, err := encodeWeights(spec.Weights)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode weights of operator %s: %w", spec.ID, err)
	}
	srcShape, _ := json.Marshal(spec.SrcShape)
	dstShape, _ := json.Marshal(spec.DstShape)

	_, err = s.Exec(`
		INSERT OR REPLACE INTO regrid_operators (
			operator_id, label, created_at, method, coord_sys,
			src_shape, dst_shape, weight_count, metadata, weights
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		spec.ID.String(), label, spec.CreatedAt.UTC().Format(timeLayout),
		string(spec.Method), string(spec.CoordSys),
		string(srcShape), string(dstShape), len(spec.Weights.Weights),
		string(mdJSON), blob,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save operator %s: %w", spec.ID, err)
	}
	return spec.ID, nil
}

// Load reads the operator with the given id.
func (s *Store) Load(id uuid.UUID) (*regrid.Operator, error) {
	var (
		created                    timestamp
		method, coordSys           string
		srcShape, dstShape, mdJSON string
		blob                       []byte
	)
	err := s.QueryRow(`
		SELECT created_at, method, coord_sys, src_shape, dst_shape, metadata, weights
		FROM regrid_operators WHERE operator_id = ?`, id.String(),
	).Scan(&created, &method, &coordSys, &srcShape, &dstShape, &mdJSON, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operator %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load operator %s: %w", id, err)
	}

	spec := regrid.OperatorSpec{
		ID:        id,
		CreatedAt: created.Time,
		Method:    regrid.Method(method),
		CoordSys:  regrid.CoordSys(coordSys),
	}
	if err := json.Unmarshal([]byte(srcShape), &spec.SrcShape); err != nil {
		return nil, fmt.Errorf("operator %s: bad src_shape: %w", id, err)
	}
	if err := json.Unmarshal([]byte(dstShape), &spec.DstShape); err != nil {
		return nil, fmt.Errorf("operator %s: bad dst_shape: %w", id, err)
	}
	var md metadata
	if err := json.Unmarshal([]byte(mdJSON), &md); err != nil {
		return nil, fmt.Errorf("operator %s: bad metadata: %w", id, err)
	}
	if err := md.apply(&spec); err != nil {
		return nil, fmt.Errorf("operator %s: %w", id, err)
	}
	if spec.Weights, err = decodeWeights(blob); err != nil {
		return nil, fmt.Errorf("operator %s: %w", id, err)
	}
	return regrid.NewOperator(spec)
}

// List returns every stored operator, newest first.
func (s *Store) List() ([]OperatorInfo, error) {
	rows, err := s.Query(`
		SELECT operator_id, label, created_at, method, coord_sys, src_shape, dst_shape, weight_count
		FROM regrid_operators ORDER BY created_at DESC, operator_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}
	defer rows.Close()

	var out []OperatorInfo
	for rows.Next() {
		var (
			info               OperatorInfo
			created            timestamp
			id, method, cs     string
			srcShape, dstShape string
		)
		if err := rows.Scan(&id, &info.Label, &created, &method, &cs, &srcShape, &dstShape, &info.WeightCount); err != nil {
			return nil, fmt.Errorf("failed to scan operator: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad operator id %q: %w", id, err)
		}
		info.CreatedAt = created.Time
		info.Method = regrid.Method(method)
		info.CoordSys = regrid.CoordSys(cs)
		if err := json.Unmarshal([]byte(srcShape), &info.SrcShape); err != nil {
			return nil, fmt.Errorf("operator %s: bad src_shape: %w", id, err)
		}
		if err := json.Unmarshal([]byte(dstShape), &info.DstShape); err != nil {
			return nil, fmt.Errorf("operator %s: bad dst_shape: %w", id, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the operator with the given id.
func (s *Store) Delete(id uuid.UUID) error {
	res, err := s.Exec(`DELETE FROM regrid_operators WHERE operator_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete operator %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete operator %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("operator %s: %w", id, ErrNotFound)
	}
	return nil
}
