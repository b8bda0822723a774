package tree

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RBTreeStatsName = "xtree/rbtree"
)

type rbInsertFixupCase string

const (
	im1 rbInsertFixupCase = "im1"
	im2 rbInsertFixupCase = "im2"
	im3 rbInsertFixupCase = "im3"
	im4 rbInsertFixupCase = "im4"
	im5 rbInsertFixupCase = "im5"
)

type rbRemoveFixupCase string

const (
	rm1 rbRemoveFixupCase = "rm1"
	rm2 rbRemoveFixupCase = "rm2"
	rm3 rbRemoveFixupCase = "rm3"
	rm4 rbRemoveFixupCase = "rm4"
	rm5 rbRemoveFixupCase = "rm5"
)

// rbTreeStats is nil if the stats are disabled. All the recorders
// are nil receiver safe.
type rbTreeStats struct {
	nodeCount         metric.Int64UpDownCounter
	rotationCount     metric.Int64Counter
	insertFixupCount  metric.Int64Counter
	removeFixupCount  metric.Int64Counter
	rotationLeftAttr  metric.MeasurementOption
	rotationRightAttr metric.MeasurementOption
}

func (stats *rbTreeStats) RecordNodeCount(count int64) {
	if stats == nil {
		return
	}
	stats.nodeCount.Add(context.Background(), count)
}

func (stats *rbTreeStats) IncreaseRotationCount(dir RBDirection) {
	if stats == nil {
		return
	}
	switch dir {
	case Left:
		stats.rotationCount.Add(context.Background(), 1, stats.rotationLeftAttr)
	case Right:
		stats.rotationCount.Add(context.Background(), 1, stats.rotationRightAttr)
	default:
	}
}

func (stats *rbTreeStats) IncreaseInsertFixupCount(c rbInsertFixupCase) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("rbtree.fixup.case", string(c)),
	)
	stats.insertFixupCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

func (stats *rbTreeStats) IncreaseRemoveFixupCount(c rbRemoveFixupCase) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("rbtree.fixup.case", string(c)),
	)
	stats.removeFixupCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

func newRBTreeStats(name string) *rbTreeStats {
	meterName := RBTreeStatsName
	if name != "" {
		meterName = fmt.Sprintf("%s/%s", RBTreeStatsName, name)
	}
	return &rbTreeStats{
		nodeCount: lo.Must[metric.Int64UpDownCounter](otel.Meter(meterName).
			Int64UpDownCounter(
				"rbtree.node.count",
				metric.WithDescription("The number of nodes in the red-black tree."),
			),
		),
		rotationCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.rotation.count",
				metric.WithDescription("The number of rotations by direction."),
			),
		),
		insertFixupCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.insert.fixup.count",
				metric.WithDescription("The number of insert rebalance cases hit."),
			),
		),
		removeFixupCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.remove.fixup.count",
				metric.WithDescription("The number of remove rebalance cases hit."),
			),
		),
		rotationLeftAttr: metric.WithAttributeSet(attribute.NewSet(
			attribute.String("rbtree.rotation.direction", Left.String()),
		)),
		rotationRightAttr: metric.WithAttributeSet(attribute.NewSet(
			attribute.String("rbtree.rotation.direction", Right.String()),
		)),
	}
}
