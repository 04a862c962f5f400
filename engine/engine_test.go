package engine

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/predictive/core/model"
	"github.com/YuminosukeSato/predictive/pkg/errors"
	"github.com/YuminosukeSato/predictive/pkg/log"
	"github.com/YuminosukeSato/predictive/preprocessing"
	"github.com/YuminosukeSato/predictive/sklearn/ensemble"
	"github.com/YuminosukeSato/predictive/sklearn/tree"
	"github.com/YuminosukeSato/predictive/store"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	base := []Option{SequentialIDs(), WithSeed(7), WithLogger(logger)}
	return New(append(base, opts...)...), logger
}

// classification は2特徴量の2クラスデータ
func classification() ([][]float64, []float64) {
	X := [][]float64{
		{0.1, 0.2}, {0.3, 0.1}, {0.2, 0.4}, {0.5, 0.3}, {0.4, 0.5},
		{2.1, 2.2}, {2.3, 2.1}, {2.2, 2.4}, {2.5, 2.3}, {2.4, 2.5},
	}
	y := []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	return X, y
}

// regression は y = 2*x1 + 3*x2 + 1
func regression() ([][]float64, []float64) {
	X := [][]float64{{1, 1}, {1, 2}, {2, 2}, {2, 3}, {3, 1}, {0, 4}, {4, 4}, {3, 0}}
	y := make([]float64, len(X))
	for i, x := range X {
		y[i] = 2*x[0] + 3*x[1] + 1
	}
	return X, y
}

func TestEndToEndDecisionTreeWithStringLabels(t *testing.T) {
	eng, _ := newTestEngine(t)
	enc := preprocessing.NewLabelEncoder()

	X := [][]float64{{0}, {1}, {2}, {3}}
	y, err := enc.FitTransform([]string{"a", "a", "b", "b"})
	require.NoError(t, err)

	id, err := eng.TrainDecisionTree(X, y, tree.WithMaxDepth(2))
	require.NoError(t, err)
	assert.Equal(t, "decision_tree-1", id)

	codes, err := eng.Predict(id, [][]float64{{0}, {3}})
	require.NoError(t, err)
	labels, err := enc.InverseTransform(codes)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, labels)
}

func TestEndToEndLinearRegressionR2(t *testing.T) {
	eng, _ := newTestEngine(t)
	X := [][]float64{{1, 1}, {1, 2}, {2, 2}, {2, 3}}
	y := []float64{6, 9, 11, 14}

	id, err := eng.TrainLinearRegression(X, y)
	require.NoError(t, err)

	r2, err := eng.Evaluate(id, X, y, "r2")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r2, 0.99)
}

func TestEvaluateMetrics(t *testing.T) {
	eng, _ := newTestEngine(t)
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, 2, 3, 4}

	id, err := eng.TrainDecisionTree(X, y)
	require.NoError(t, err)

	r2, err := eng.Evaluate(id, X, y, "r2")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-12)

	acc, err := eng.Evaluate(id, X, y, "accuracy")
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	for _, metric := range []string{"mse", "rmse", "mae"} {
		v, err := eng.Evaluate(id, X, []float64{0, 2, 5, 4}, metric)
		require.NoError(t, err, metric)
		assert.GreaterOrEqual(t, v, 0.0, metric)
	}

	_, err = eng.Evaluate(id, X, y, "f1")
	var unsupported *errors.UnsupportedOperationError
	assert.True(t, errors.As(err, &unsupported), "got %v", err)

	_, err = eng.Evaluate("missing", X, y, "r2")
	var notFound *errors.ModelNotFoundError
	assert.True(t, errors.As(err, &notFound), "got %v", err)

	_, err = eng.Evaluate(id, X, y[:2], "mse")
	var dsErr *errors.InvalidDatasetError
	assert.True(t, errors.As(err, &dsErr), "got %v", err)

	assert.Contains(t, Metrics(), "explained_variance")
}

func TestPredictErrors(t *testing.T) {
	eng, _ := newTestEngine(t)

	var notFound *errors.ModelNotFoundError
	for _, X := range [][][]float64{nil, {{1}}, {{1, 2}, {3, 4}}} {
		_, err := eng.Predict("decision_tree-99", X)
		assert.True(t, errors.As(err, &notFound), "got %v", err)
	}

	X, y := classification()
	id, err := eng.TrainDecisionTree(X, y)
	require.NoError(t, err)

	_, err = eng.Predict(id, [][]float64{{1, 2, 3}})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr), "got %v", err)

	out, err := eng.Predict(id, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	eng.replace(&Record{ID: "bogus", Kind: model.DecisionTree, Model: "not a model"})
	_, err = eng.Predict("bogus", [][]float64{{1}})
	var unsupported *errors.UnsupportedOperationError
	assert.True(t, errors.As(err, &unsupported), "got %v", err)
}

func TestPredictLargeBatchKeepsOrder(t *testing.T) {
	eng, _ := newTestEngine(t)
	X, y := regression()
	id, err := eng.TrainLinearRegression(X, y)
	require.NoError(t, err)

	batch := make([][]float64, 5000)
	for i := range batch {
		batch[i] = []float64{float64(i), 1}
	}
	out, err := eng.Predict(id, batch)
	require.NoError(t, err)
	require.Len(t, out, len(batch))
	for i, v := range out {
		require.InDelta(t, 2*float64(i)+4, v, 1e-6, "row %d", i)
	}
}

func TestTrainFailureRegistersNothing(t *testing.T) {
	eng, logger := newTestEngine(t)

	_, err := eng.TrainDecisionTree([][]float64{{1}, {2}}, []float64{1})
	var dsErr *errors.InvalidDatasetError
	assert.True(t, errors.As(err, &dsErr), "got %v", err)

	_, err = eng.TrainLinearRegression([][]float64{{1, 2}, {2, 4}, {3, 6}}, []float64{1, 2, 3})
	assert.True(t, errors.Is(err, errors.ErrSingularMatrix), "got %v", err)

	X, y := classification()
	_, err = eng.TrainRandomForest(X, y, ensemble.WithNTrees(0))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr), "got %v", err)

	_, err = eng.TrainGradientBoosting(X, y, ensemble.WithLearningRate(0))
	assert.True(t, errors.As(err, &valErr), "got %v", err)

	assert.Empty(t, eng.ListModels())
	assert.True(t, logger.ContainsMessage("Training rejected"))
	assert.True(t, logger.ContainsMessage("Training failed"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "linear_regression"))
}

func TestTrainLogsAndRecords(t *testing.T) {
	trainedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	eng, logger := newTestEngine(t, WithClock(func() time.Time { return trainedAt }))

	X, y := regression()
	id, err := eng.TrainGradientBoosting(X, y, ensemble.WithNEstimators(5))
	require.NoError(t, err)

	rec, ok := eng.GetModel(id)
	require.True(t, ok)
	assert.Equal(t, model.GradientBoosting, rec.Kind)
	assert.Equal(t, trainedAt, rec.TrainedAt)
	assert.Equal(t, 2, rec.NFeatures)
	assert.Equal(t, 5, rec.Params["n_estimators"])
	assert.IsType(t, &ensemble.GradientBoosting{}, rec.Model)

	assert.True(t, logger.ContainsMessage("Model trained"))
	assert.True(t, logger.ContainsField(log.EstimatorIDKey, id))
	assert.True(t, logger.ContainsField(log.SamplesKey, float64(len(X))))
	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationFit))
}

func TestListModelsInsertionOrder(t *testing.T) {
	eng, _ := newTestEngine(t)
	X, y := regression()

	var want []string
	for i := 0; i < 3; i++ {
		id, err := eng.TrainLinearRegression(X, y)
		require.NoError(t, err)
		want = append(want, id)
	}
	id, err := eng.TrainDecisionTree(X, y)
	require.NoError(t, err)
	want = append(want, id)

	assert.Equal(t, want, eng.ListModels())
	assert.Equal(t, "linear_regression-3", want[2])
	assert.Equal(t, "decision_tree-4", want[3])
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	eng := New(WithLogger(log.NewZerologLogger(io.Discard, log.LevelError)))
	X, y := regression()
	id, err := eng.TrainLinearRegression(X, y)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "linear_regression-"))
	assert.Len(t, strings.TrimPrefix(id, "linear_regression-"), 36)
}

func TestConcurrentTrainingYieldsDistinctIDs(t *testing.T) {
	eng, _ := newTestEngine(t)
	X, y := classification()

	const n = 24
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				ids[i], errs[i] = eng.TrainDecisionTree(X, y)
			case 1:
				ids[i], errs[i] = eng.TrainRandomForest(X, y, ensemble.WithNTrees(3))
			default:
				ids[i], errs[i] = eng.TrainGradientBoosting(X, y, ensemble.WithNEstimators(3))
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range ids {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "duplicate id %s", ids[i])
		seen[ids[i]] = true
	}
	assert.Len(t, eng.ListModels(), n)
}

func TestForestSeedIsReproducible(t *testing.T) {
	X, y := classification()
	probe := [][]float64{{0.2, 0.3}, {2.2, 2.3}, {1.2, 1.3}, {0.4, 2.4}}

	predict := func(opts ...ensemble.ForestOption) []float64 {
		eng, _ := newTestEngine(t)
		id, err := eng.TrainRandomForest(X, y, opts...)
		require.NoError(t, err)
		rec, _ := eng.GetModel(id)
		assert.GreaterOrEqual(t, rec.Model.(*ensemble.RandomForest).RandomState(), int64(0))
		out, err := eng.Predict(id, probe)
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, predict(ensemble.WithNTrees(7)), predict(ensemble.WithNTrees(7)))
	assert.Equal(t,
		predict(ensemble.WithNTrees(7), ensemble.WithRandomState(3)),
		predict(ensemble.WithNTrees(7), ensemble.WithRandomState(3), ensemble.WithNJobs(1)))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ldb, err := store.OpenInMemoryLevelDB()
	require.NoError(t, err)
	defer ldb.Close()
	cached, err := store.NewCached(ldb, 8)
	require.NoError(t, err)

	stores := map[string]Store{
		"memory":  store.NewMemory(),
		"leveldb": ldb,
		"cached":  cached,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			eng, logger := newTestEngine(t, WithStore(s))
			Xc, yc := classification()
			Xr, yr := regression()

			trained := map[string][][]float64{}
			id, err := eng.TrainDecisionTree(Xc, yc, tree.WithMaxDepth(3))
			require.NoError(t, err)
			trained[id] = Xc
			id, err = eng.TrainRandomForest(Xc, yc, ensemble.WithNTrees(5))
			require.NoError(t, err)
			trained[id] = Xc
			id, err = eng.TrainGradientBoosting(Xr, yr, ensemble.WithNEstimators(8))
			require.NoError(t, err)
			trained[id] = Xr
			id, err = eng.TrainLinearRegression(Xr, yr)
			require.NoError(t, err)
			trained[id] = Xr

			for id := range trained {
				require.NoError(t, eng.SaveModel(id))
			}
			assert.True(t, logger.ContainsMessage("Model saved"))

			restored, _ := newTestEngine(t, WithStore(s))
			for id, X := range trained {
				want, err := eng.Predict(id, X)
				require.NoError(t, err)

				rec, err := restored.LoadModel(id)
				require.NoError(t, err)
				orig, _ := eng.GetModel(id)
				assert.Equal(t, orig.Kind, rec.Kind)
				assert.Equal(t, orig.NFeatures, rec.NFeatures)
				assert.True(t, orig.TrainedAt.Equal(rec.TrainedAt))

				got, err := restored.Predict(id, X)
				require.NoError(t, err)
				assert.Equal(t, want, got, "predictions of %s changed after load", id)
			}
			assert.ElementsMatch(t, eng.ListModels(), restored.ListModels())
		})
	}
}

func TestLoadReplacesExistingRecord(t *testing.T) {
	s := store.NewMemory()
	eng, _ := newTestEngine(t, WithStore(s))
	X, y := regression()

	id, err := eng.TrainLinearRegression(X, y)
	require.NoError(t, err)
	require.NoError(t, eng.SaveModel(id))

	before, _ := eng.GetModel(id)
	rec, err := eng.LoadModel(id)
	require.NoError(t, err)
	assert.NotSame(t, before, rec)
	assert.Equal(t, []string{id}, eng.ListModels())
}

func TestPersistenceErrors(t *testing.T) {
	eng, _ := newTestEngine(t)
	X, y := regression()
	id, err := eng.TrainLinearRegression(X, y)
	require.NoError(t, err)

	var unsupported *errors.UnsupportedOperationError
	assert.True(t, errors.As(eng.SaveModel(id), &unsupported))
	_, err = eng.LoadModel(id)
	assert.True(t, errors.As(err, &unsupported))

	s := store.NewMemory()
	withStore, logger := newTestEngine(t, WithStore(s))

	var notFound *errors.ModelNotFoundError
	assert.True(t, errors.As(eng.SaveModel("nope"), &notFound), "unknown id wins over missing store")
	assert.True(t, errors.As(withStore.SaveModel("nope"), &notFound))
	_, err = withStore.LoadModel("nope")
	assert.True(t, errors.As(err, &notFound))

	require.NoError(t, s.Set("corrupt", []byte("not a snapshot")))
	_, err = withStore.LoadModel("corrupt")
	assert.Error(t, err)
	assert.True(t, logger.ContainsMessage("Load failed"))
	assert.NotContains(t, withStore.ListModels(), "corrupt")
}

func TestExportImport(t *testing.T) {
	eng, _ := newTestEngine(t)
	X, y := classification()
	id, err := eng.TrainRandomForest(X, y, ensemble.WithNTrees(4))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), fmt.Sprintf("%s.snap", id))
	require.NoError(t, eng.ExportModel(id, path))

	other, _ := newTestEngine(t)
	rec, err := other.ImportModel(path)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	want, err := eng.Predict(id, X)
	require.NoError(t, err)
	got, err := other.Predict(id, X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPlotResiduals(t *testing.T) {
	eng, _ := newTestEngine(t)
	X, y := regression()
	id, err := eng.TrainGradientBoosting(X, y)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, eng.PlotResiduals(id, X, y, &buf, "svg"))
	assert.Contains(t, buf.String(), "<svg")

	err = eng.PlotResiduals("missing", X, y, &buf, "svg")
	var notFound *errors.ModelNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestGradientBoostingWithoutEstimatorsPredictsMean(t *testing.T) {
	eng, _ := newTestEngine(t)
	X, y := regression()
	id, err := eng.TrainGradientBoosting(X, y, ensemble.WithNEstimators(0))
	require.NoError(t, err)

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	out, err := eng.Predict(id, [][]float64{{0, 0}, {100, -100}})
	require.NoError(t, err)
	for _, v := range out {
		assert.False(t, math.IsNaN(v))
		assert.InDelta(t, mean, v, 1e-12)
	}
}

func TestTrainRejectsNonFiniteLabels(t *testing.T) {
	eng, _ := newTestEngine(t)
	X := [][]float64{{0}, {1}, {2}}

	for _, y := range [][]float64{{0, math.NaN(), 1}, {0, 1, math.Inf(1)}} {
		_, err := eng.TrainDecisionTree(X, y)
		var dsErr *errors.InvalidDatasetError
		assert.True(t, errors.As(err, &dsErr), "y=%v", y)
		_, err = eng.TrainLinearRegression(X, y)
		assert.True(t, errors.As(err, &dsErr), "y=%v", y)
	}
	assert.Empty(t, eng.ListModels())
}
