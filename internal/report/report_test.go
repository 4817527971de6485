package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molchalih/inst2txt/internal/core/domain"
	"github.com/molchalih/inst2txt/internal/process/analysis"
	"github.com/molchalih/inst2txt/internal/process/cluster"
	"github.com/molchalih/inst2txt/internal/process/socialgraph"
)

func fixtureRecords() []domain.CreatorRecord {
	return []domain.CreatorRecord{
		{CreatorID: 1, ClusterID: 0, Confidence: 0.9, Coords: []float64{0.1, 0.2}, SampleSize: 3},
		{CreatorID: 2, ClusterID: 0, Confidence: 0.8, Coords: []float64{0.15, 0.25}, SampleSize: 2},
		{CreatorID: 3, ClusterID: 1, Confidence: 1.0, Coords: []float64{0.9, 0.8}, SampleSize: 4},
		{CreatorID: 9, ClusterID: domain.NoiseClusterID, Confidence: 0, Coords: []float64{0.5, 0.5}, SampleSize: 2},
	}
}

func fixtureResults() []domain.HomophilyResult {
	return []domain.HomophilyResult{
		{Hypothesis: domain.HypothesisSameClusterEdges, Statistic: 0.92, PValue: 0.001, NullMean: 0.41, SampleSize: 12},
		{Hypothesis: domain.HypothesisCentroidDistance, Statistic: -0.6, PValue: 0.01, SampleSize: 4},
	}
}

func TestFromRecords(t *testing.T) {
	epoch := domain.AnalysisEpoch{ID: "epoch-1", Seed: 42}

	r := FromRecords(epoch, fixtureRecords(), fixtureResults())

	assert.Equal(t, "epoch-1", r.EpochID)
	assert.EqualValues(t, 42, r.Seed)
	assert.False(t, r.GeneratedAt.IsZero())

	assert.Equal(t, 4, r.CreatorCount)
	assert.Equal(t, 2, r.ClusterCount)
	assert.Equal(t, 1, r.NoiseCount)

	require.Len(t, r.Creators, 4)
	assert.EqualValues(t, 1, r.Creators[0].CreatorID)
	assert.Equal(t, 0.9, r.Creators[0].Confidence)

	assert.Equal(t, map[string][]int64{
		"0":  {1, 2},
		"1":  {3},
		"-1": {9},
	}, r.ClusterMembers)

	require.Len(t, r.Hypotheses, 2)
	assert.Equal(t, domain.HypothesisSameClusterEdges, r.Hypotheses[0].Name)
	assert.Equal(t, 0.41, r.Hypotheses[0].NullMean)
	assert.Equal(t, 12, r.Hypotheses[0].SampleSize)

	assert.Empty(t, r.Clusters)
	assert.Nil(t, r.Graph)
}

func TestFromOutput(t *testing.T) {
	epoch := domain.AnalysisEpoch{ID: "epoch-2", Seed: 7}

	out := &analysis.Output{
		Creators: fixtureRecords(),
		Clusters: []cluster.ClusterInfo{
			{ID: 0, Size: 2, Persistence: 0.85},
			{ID: 1, Size: 1, Persistence: 0.7},
		},
		Graph: socialgraph.Stats{
			Nodes:            3,
			Edges:            2,
			SameClusterEdges: 1,
			MeanDegree:       2.0 / 3.0,
		},
		Homophily: fixtureResults(),
	}

	r := FromOutput(epoch, out)

	require.Len(t, r.Clusters, 2)
	assert.Equal(t, Cluster{ID: 0, Size: 2, Persistence: 0.85}, r.Clusters[0])

	require.NotNil(t, r.Graph)
	assert.Equal(t, 3, r.Graph.Nodes)
	assert.Equal(t, 1, r.Graph.SameClusterEdges)
}

func TestWriteRoundTrip(t *testing.T) {
	epoch := domain.AnalysisEpoch{ID: "epoch-3", Seed: 1}

	r := FromRecords(epoch, fixtureRecords(), fixtureResults())

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf))

	assert.Contains(t, buf.String(), `"-1"`)

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, r.EpochID, decoded.EpochID)
	assert.Equal(t, r.ClusterMembers, decoded.ClusterMembers)
	assert.Len(t, decoded.Creators, 4)
}
