package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/thetastep/internal/sim"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunSpec is what a run was asked to do; RunMetadata adds what it did.
type RunSpec struct {
	Model          string
	Scheme         string
	Alpha          float64
	Dt             float64
	Duration       float64
	Ordering       string
	StaggeredInput bool
}

type RunMetadata struct {
	ID             string    `json:"id"`
	Model          string    `json:"model"`
	Timestamp      time.Time `json:"timestamp"`
	Scheme         string    `json:"scheme"`
	Alpha          float64   `json:"alpha"`
	Dt             float64   `json:"dt"`
	Duration       float64   `json:"duration"`
	Ordering       string    `json:"ordering"`
	StaggeredInput bool      `json:"staggered_input"`

	StepsTaken          int                `json:"steps_taken"`
	NewtonIterations    int                `json:"newton_iterations"`
	MaxNewtonIterations int                `json:"max_newton_iterations"`
	Outcomes            map[string]int     `json:"outcomes,omitempty"`
	Metrics             map[string]float64 `json:"metrics"`
}

// Trajectory is the content of states.csv.
type Trajectory struct {
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Controls [][]float64 `json:"controls,omitempty"`
}

func (s *Store) runDir(runID string) (string, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return "", fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func (s *Store) Save(spec RunSpec, result *sim.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:                  runID,
		Model:               spec.Model,
		Timestamp:           s.now().UTC(),
		Scheme:              spec.Scheme,
		Alpha:               spec.Alpha,
		Dt:                  spec.Dt,
		Duration:            spec.Duration,
		Ordering:            spec.Ordering,
		StaggeredInput:      spec.StaggeredInput,
		StepsTaken:          result.StepsTaken,
		NewtonIterations:    result.NewtonIterations,
		MaxNewtonIterations: result.MaxNewtonIterations,
		Metrics:             result.Metrics,
	}
	if len(result.Outcomes) > 0 {
		meta.Outcomes = make(map[string]int, len(result.Outcomes))
		for o, n := range result.Outcomes {
			meta.Outcomes[o.String()] = n
		}
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result); err != nil {
		return "", err
	}
	return runID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeStates(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if len(result.States) > 0 {
		header := []string{"time"}
		for i := range result.States[0] {
			header = append(header, fmt.Sprintf("x%d", i))
		}

		numControls := 0
		if len(result.Controls) > 0 {
			numControls = len(result.Controls[0])
		}
		for i := 0; i < numControls; i++ {
			header = append(header, fmt.Sprintf("u%d", i))
		}

		if err := w.Write(header); err != nil {
			return err
		}

		for i := range result.States {
			row := []string{formatFloat(result.Times[i])}
			for _, val := range result.States[i] {
				row = append(row, formatFloat(val))
			}

			// The last state has no applied input; repeat the previous one so
			// every row has the same width.
			if numControls > 0 {
				u := result.Controls[min(i, len(result.Controls)-1)]
				for _, val := range u {
					row = append(row, formatFloat(val))
				}
			}

			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// List returns all readable runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadTrajectory(runID string) (*Trajectory, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(dir, statesFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	traj := &Trajectory{Times: []float64{}, States: [][]float64{}}
	if len(records) < 2 {
		return traj, nil
	}

	header := records[0]
	numStates := 0
	for _, name := range header[1:] {
		if strings.HasPrefix(name, "x") {
			numStates++
		}
	}
	hasControls := len(header)-1 > numStates

	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", statesFile, i+2, err)
			}
			vals[j] = v
		}

		traj.Times = append(traj.Times, vals[0])
		traj.States = append(traj.States, vals[1:1+numStates])
		if hasControls {
			traj.Controls = append(traj.Controls, vals[1+numStates:])
		}
	}

	return traj, nil
}

// LoadStates returns the state rows and their times.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	traj, err := s.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	return traj.States, traj.Times, nil
}

type export struct {
	Metadata *RunMetadata `json:"metadata"`
	*Trajectory
}

// ExportJSON writes metadata and trajectory of a run as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	traj, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export{Metadata: meta, Trajectory: traj})
}

// ExportCSV copies the stored states.csv of a run to w.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(dir, statesFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
