// Standard attribute keys for engine log records. The hierarchical names
// ("model.name", "data.samples") keep records filterable across components.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the kind of model, e.g. "decision_tree".
	ModelNameKey = "model.name"

	// EstimatorIDKey is the registry id of a trained model.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"
)

// Data Shape
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
)

// Performance Metrics
const (
	DurationMsKey = "perf.duration_ms"
	LossKey       = "metrics.loss"
	MetricKey     = "metrics.name"
	ScoreKey      = "metrics.score"
	IterationKey  = "training.iteration"
)

// Hyperparameters and Configuration
const (
	HyperParamsKey = "model.hyperparams"
	RandomSeedKey  = "config.random_seed"
)

// Persistence
const (
	StoreKeyKey   = "store.key"
	StoreBytesKey = "store.bytes"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationEvaluate = "evaluate"
	OperationSave     = "save"
	OperationLoad     = "load"
)
