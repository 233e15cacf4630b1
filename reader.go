package cpmp

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadInstance parses the classic cpmp text format: a first line holding the
// number of locations and the number of clusters, then the distance matrix
// row by row, then the demand line and finally the capacity line. Blank
// lines are ignored.
func ReadInstance(r io.Reader) (*Instance, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<20)

	lineno := 0
	nextLine := func() ([]string, error) {
		for sc.Scan() {
			lineno++
			fields := strings.Fields(sc.Text())
			if len(fields) > 0 {
				return fields, nil
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}

	header, err := nextLine()
	if err != nil {
		return nil, errors.Wrap(err, "reading instance header")
	}
	if len(header) < 2 {
		return nil, errors.Errorf("invalid input line %d: %d entries found, need 2", lineno, len(header))
	}
	nlocations, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid location count in line %d", lineno)
	}
	nclusters, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cluster count in line %d", lineno)
	}
	if nlocations < 1 {
		return nil, errors.Errorf("invalid location count %d in line %d", nlocations, lineno)
	}

	parseRow := func(what string) ([]int64, error) {
		fields, err := nextLine()
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", what)
		}
		if len(fields) < nlocations {
			return nil, errors.Errorf("invalid input line %d: too few %s entries (%d of %d)",
				lineno, what, len(fields), nlocations)
		}
		row := make([]int64, nlocations)
		for i := 0; i < nlocations; i++ {
			v, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid %s entry %q in line %d", what, fields[i], lineno)
			}
			row[i] = v
		}
		return row, nil
	}

	distances := make([][]int64, nlocations)
	for i := range distances {
		if distances[i], err = parseRow("distance"); err != nil {
			return nil, err
		}
	}
	demands, err := parseRow("demand")
	if err != nil {
		return nil, err
	}
	capacities, err := parseRow("capacity")
	if err != nil {
		return nil, err
	}

	return NewInstance(nclusters, distances, demands, capacities)
}

// instanceFile is the JSON instance schema.
type instanceFile struct {
	Name       string    `json:"name"`
	Comment    string    `json:"comment"`
	NClusters  int       `json:"nclusters"`
	Distances  [][]int64 `json:"distances"`
	Demands    []int64   `json:"demands"`
	Capacities []int64   `json:"capacities"`
}

// ReadInstanceJSON parses a JSON instance.
func ReadInstanceJSON(r io.Reader) (*Instance, error) {
	var file instanceFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "decoding JSON instance")
	}
	return NewInstance(file.NClusters, file.Distances, file.Demands, file.Capacities)
}

// ReadInstanceFile reads an instance from a file, dispatching on the
// extension: .json selects the JSON format, everything else the classic text
// format.
func ReadInstanceFile(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadInstanceJSON(f)
	}
	return ReadInstance(f)
}

// SysInfo saves the basic system information for a solution report.
type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	RAM      string `json:"ram"`
}

// ClusterReport is the presentation form of one cluster.
type ClusterReport struct {
	Median  int   `json:"median"`
	Members []int `json:"members"`
	Cost    int64 `json:"cost"`
	Demand  int64 `json:"demand"`
}

// Report is the JSON solution report written by the command line solver.
type Report struct {
	Obj      int64           `json:"obj"`
	Optimal  bool            `json:"optimal"`
	Clusters []ClusterReport `json:"clusters"`
	Nodes    int64           `json:"nodes"`
	Columns  int             `json:"columns"`
	Time     string          `json:"time"`
	System   SysInfo         `json:"system"`
	Comment  string          `json:"comment"`
}

// NewReport renders a solution into its report form, recomputing per-cluster
// cost and demand from the instance.
func NewReport(inst *Instance, sol *Solution) *Report {
	rep := &Report{
		Obj:     sol.Objective,
		Optimal: true,
		Nodes:   sol.Nodes,
		Columns: sol.ColumnsGenerated,
		Comment: strings.Join(sol.Warnings, "; "),
	}
	for _, cl := range sol.Clusters {
		cr := ClusterReport{Median: cl.Median, Members: cl.Members}
		for _, l := range cl.Members {
			cr.Cost += inst.Distance(l, cl.Median)
			cr.Demand += inst.Demand(l)
		}
		rep.Clusters = append(rep.Clusters, cr)
	}
	return rep
}

// Write emits the report as indented JSON.
func (rep *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rep), "writing solution report")
}
