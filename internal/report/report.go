// Package report renders the results of an analysis epoch as JSON: the
// per-creator assignments, the cluster membership mapping and the hypothesis
// test outcomes.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/molchalih/inst2txt/internal/core/domain"
	"github.com/molchalih/inst2txt/internal/process/analysis"
)

// Creator is one creator's assignment in the report.
type Creator struct {
	CreatorID  int64     `json:"creator_id"`
	ClusterID  int       `json:"cluster_id"`
	Confidence float64   `json:"confidence"`
	Coords     []float64 `json:"coords"`
	SampleSize int       `json:"sample_size"`
}

// Cluster describes one selected cluster.
type Cluster struct {
	ID          int     `json:"id"`
	Size        int     `json:"size"`
	Persistence float64 `json:"persistence"`
}

// Graph summarizes the follow graph the hypothesis tests ran on.
type Graph struct {
	Nodes            int     `json:"nodes"`
	Edges            int     `json:"edges"`
	SameClusterEdges int     `json:"same_cluster_edges"`
	MeanDegree       float64 `json:"mean_degree"`
}

// Hypothesis is one test outcome.
type Hypothesis struct {
	Name       string  `json:"name"`
	Statistic  float64 `json:"statistic"`
	PValue     float64 `json:"p_value"`
	NullMean   float64 `json:"null_mean,omitempty"`
	SampleSize int     `json:"sample_size"`
}

// Report is the serializable result of one epoch. ClusterMembers maps the
// cluster id, as a string so the noise label "-1" survives JSON, to the
// member creator ids in ascending order.
type Report struct {
	EpochID        string             `json:"epoch_id"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Seed           int64              `json:"seed"`
	CreatorCount   int                `json:"creator_count"`
	ClusterCount   int                `json:"cluster_count"`
	NoiseCount     int                `json:"noise_count"`
	Creators       []Creator          `json:"creators"`
	ClusterMembers map[string][]int64 `json:"cluster_members"`
	Clusters       []Cluster          `json:"clusters,omitempty"`
	Graph          *Graph             `json:"graph,omitempty"`
	Hypotheses     []Hypothesis       `json:"hypotheses"`
}

// FromRecords builds a report from persisted epoch rows. Cluster persistence
// and graph statistics are not stored per epoch, so they stay empty here.
func FromRecords(epoch domain.AnalysisEpoch, records []domain.CreatorRecord, results []domain.HomophilyResult) *Report {
	r := &Report{
		EpochID:        epoch.ID,
		GeneratedAt:    time.Now().UTC(),
		Seed:           epoch.Seed,
		CreatorCount:   len(records),
		Creators:       make([]Creator, len(records)),
		ClusterMembers: make(map[string][]int64),
		Hypotheses:     make([]Hypothesis, len(results)),
	}

	clusters := make(map[int]struct{})

	for i, rec := range records {
		r.Creators[i] = Creator{
			CreatorID:  rec.CreatorID,
			ClusterID:  rec.ClusterID,
			Confidence: rec.Confidence,
			Coords:     rec.Coords,
			SampleSize: rec.SampleSize,
		}

		key := strconv.Itoa(rec.ClusterID)
		r.ClusterMembers[key] = append(r.ClusterMembers[key], rec.CreatorID)

		if rec.ClusterID == domain.NoiseClusterID {
			r.NoiseCount++
		} else {
			clusters[rec.ClusterID] = struct{}{}
		}
	}

	r.ClusterCount = len(clusters)

	for i, res := range results {
		r.Hypotheses[i] = Hypothesis{
			Name:       res.Hypothesis,
			Statistic:  res.Statistic,
			PValue:     res.PValue,
			NullMean:   res.NullMean,
			SampleSize: res.SampleSize,
		}
	}

	return r
}

// FromOutput builds a report from a fresh pipeline run, including the
// cluster persistence and graph statistics only the run itself knows.
func FromOutput(epoch domain.AnalysisEpoch, out *analysis.Output) *Report {
	r := FromRecords(epoch, out.Creators, out.Homophily)

	r.Clusters = make([]Cluster, len(out.Clusters))
	for i, c := range out.Clusters {
		r.Clusters[i] = Cluster{ID: c.ID, Size: c.Size, Persistence: c.Persistence}
	}

	r.Graph = &Graph{
		Nodes:            out.Graph.Nodes,
		Edges:            out.Graph.Edges,
		SameClusterEdges: out.Graph.SameClusterEdges,
		MeanDegree:       out.Graph.MeanDegree,
	}

	return r
}

// Write emits the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}
