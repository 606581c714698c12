package gosam

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// LoadG2O reads a planar pose graph in the g2o text format: VERTEX_SE2
// records become SE2 values under X keys and EDGE_SE2 records become between
// factors with Gaussian noise from the edge's information matrix. The first
// vertex is anchored with a unit-noise prior so the resulting system is well
// posed. Only the planar records are supported; a 3D record is an error.
func LoadG2O(path string) (*Graph, *Values, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading g2o: %w", err)
	}
	defer f.Close()

	graph := NewGraph()
	values := NewValues()
	anchored := false

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "VERTEX_SE2":
			id, vals, err := parseG2ORecord(fields, 1, 3)
			if err != nil {
				return nil, nil, fmt.Errorf("g2o %s:%d: %w", path, line, err)
			}
			pose := NewSE2(vals[2], vals[0], vals[1])
			if err := values.Insert(X(id[0]), pose); err != nil {
				return nil, nil, fmt.Errorf("g2o %s:%d: %w", path, line, err)
			}
			if !anchored {
				prior := NewFactor(NewPriorResidual(pose), X(id[0])).MustBuild()
				graph.AddFactor(prior)
				anchored = true
			}

		case "EDGE_SE2":
			id, vals, err := parseG2ORecord(fields, 2, 9)
			if err != nil {
				return nil, nil, fmt.Errorf("g2o %s:%d: %w", path, line, err)
			}
			delta := NewSE2(vals[2], vals[0], vals[1])
			noise, err := NewGaussianNoiseInformation(g2oInformation(vals[3:9]))
			if err != nil {
				return nil, nil, fmt.Errorf("g2o %s:%d: %w", path, line, err)
			}
			factor, err := NewFactor(NewBetweenResidual(delta), X(id[0]), X(id[1])).
				Noise(noise).
				Build()
			if err != nil {
				return nil, nil, fmt.Errorf("g2o %s:%d: %w", path, line, err)
			}
			graph.AddFactor(factor)

		case "VERTEX_SE3:QUAT", "EDGE_SE3:QUAT":
			return nil, nil, fmt.Errorf("g2o %s:%d: 3D record %s is not supported", path, line, fields[0])

		default:
			return nil, nil, fmt.Errorf("g2o %s:%d: unknown record %s", path, line, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("loading g2o: %w", err)
	}
	return graph, values, nil
}

// parseG2ORecord splits a record into its integer ids and float payload.
func parseG2ORecord(fields []string, nIDs, nVals int) ([]uint64, []float64, error) {
	if len(fields) != 1+nIDs+nVals {
		return nil, nil, fmt.Errorf("%s record has %d fields, want %d", fields[0], len(fields), 1+nIDs+nVals)
	}
	ids := make([]uint64, nIDs)
	for i := range ids {
		id, err := strconv.ParseUint(fields[1+i], 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s record: %w", fields[0], err)
		}
		ids[i] = id
	}
	vals := make([]float64, nVals)
	for i := range vals {
		v, err := strconv.ParseFloat(fields[1+nIDs+i], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s record: %w", fields[0], err)
		}
		vals[i] = v
	}
	return ids, vals, nil
}

// g2oInformation expands the six upper-triangular entries of an EDGE_SE2
// information matrix, stored over (x, y, theta), into the (theta, x, y)
// tangent ordering used here.
func g2oInformation(tri []float64) *mat.SymDense {
	// File order: xx xy xt yy yt tt.
	inf := mat.NewSymDense(3, nil)
	inf.SetSym(0, 0, tri[5]) // tt
	inf.SetSym(0, 1, tri[2]) // tx
	inf.SetSym(0, 2, tri[4]) // ty
	inf.SetSym(1, 1, tri[0]) // xx
	inf.SetSym(1, 2, tri[1]) // xy
	inf.SetSym(2, 2, tri[3]) // yy
	return inf
}
