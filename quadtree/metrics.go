package quadtree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const treeIDLabel = "tree_id"

var (
	treeInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_inserts",
		Help: "The number of points inserted into a quadtree.",
	}, []string{
		treeIDLabel,
	})

	treeRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_removals",
		Help: "The number of points removed from a quadtree.",
	}, []string{
		treeIDLabel,
	})

	treeSubdivisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_subdivisions",
		Help: "The number of cell subdivisions.",
	}, []string{
		treeIDLabel,
	})

	treeRelocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_relocations",
		Help: "The number of points re-homed after a move across a leaf boundary.",
	}, []string{
		treeIDLabel,
	})
)

func instrumentInsert(treeID string) {
	treeInserts.With(prometheus.Labels{treeIDLabel: treeID}).Inc()
}

func instrumentRemoval(treeID string) {
	treeRemovals.With(prometheus.Labels{treeIDLabel: treeID}).Inc()
}

func instrumentSubdivision(treeID string) {
	treeSubdivisions.With(prometheus.Labels{treeIDLabel: treeID}).Inc()
}

func instrumentRelocation(treeID string) {
	treeRelocations.With(prometheus.Labels{treeIDLabel: treeID}).Inc()
}
