package tracker

import (
	"time"

	"github.com/yitzuliu/tracker/pkg/knowledge"
)

// Tier is the confidence band a similarity score falls into.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// Action records what an ingest did with an observation.
type Action string

const (
	ActionUpdate  Action = "UPDATE"
	ActionObserve Action = "OBSERVE"
	ActionIgnore  Action = "IGNORE"
)

// StateRecord is the authoritative record of the current best estimate of
// which step the user is on.
type StateRecord struct {
	Timestamp         time.Time
	CleanedText       string
	TaskID            string
	StepIndex         int
	Similarity        float64
	MatchedStepDetail knowledge.MatchedStep
}

// OptimizedHistoryRecord is a StateRecord projection that omits text and step
// detail, kept to bound sliding-window memory.
type OptimizedHistoryRecord struct {
	Timestamp  time.Time
	TaskID     string
	StepIndex  int
	Similarity float64
}

// ProcessingMetric is an append-only record of one ingest's disposition.
type ProcessingMetric struct {
	Timestamp           time.Time
	InputPreview        string
	Similarity          float64
	LatencyMS           float64
	Tier                Tier
	Action              Action
	TaskID              string
	StepIndex           int
	HasTaskStep         bool
	ConsecutiveLowCount int
}

// MemoryStats summarizes sliding-window memory usage.
type MemoryStats struct {
	Count          int
	Bytes          int
	CleanupCount   int
	MaxSizeReached bool
	AvgRecordBytes float64
	FailureCount   int
}

// MetricsSummary aggregates the processing metrics buffer.
type MetricsSummary struct {
	Total               int
	AvgSimilarity       float64
	MinSimilarity       float64
	MaxSimilarity       float64
	AvgLatencyMS        float64
	MinLatencyMS        float64
	MaxLatencyMS        float64
	ActionHistogram     map[Action]int
	TierHistogram       map[Tier]int
	ConsecutiveLowCount int
}

// HistoryAnalysis summarizes the legacy history buffer.
type HistoryAnalysis struct {
	TaskHistogram     map[string]int
	StepHistogram     map[int]int
	TierHistogram     map[Tier]int
	TimeSpanMinutes   float64
}
