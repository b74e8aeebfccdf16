package main

import (
    "encoding/csv"
    "flag"
    "os"
    "path/filepath"
    "strconv"

    "gonum.org/v1/plot"
    "gonum.org/v1/plot/plotter"
    "gonum.org/v1/plot/plotutil"
    "gonum.org/v1/plot/vg"

    "go.uber.org/zap"

    "arbor/internal/data"
    "arbor/internal/models"
    "arbor/pkg/utils"
)

func main() {
    logger := utils.Logger()
    defer logger.Sync()

    regen := flag.Bool("regen", false, "Regenerate the synthetic dataset before training")
    n := flag.Int("n", 2000, "Number of synthetic samples")
    noiseVars := flag.Int("noise_vars", 4, "Number of synthetic noise variables")
    dataPath := flag.String("data", "data/synthetic.csv", "Input CSV dataset")
    depVarName := flag.String("depvar", "class", "Name of the response variable")
    trees := flag.Int("trees", 500, "Number of trees")
    mtry := flag.Int("mtry", 0, "Variables tried per split (0 = floor(sqrt(vars-1)))")
    minNodeSize := flag.Int("min_node_size", 0, "Minimal node size (0 = default)")
    threads := flag.Int("threads", 0, "Worker threads (0 = all cores)")
    seed := flag.Int64("seed", 42, "Random seed")
    importance := flag.Bool("importance", true, "Track Gini variable importance")
    replace := flag.Bool("replace", true, "Sample with replacement (bootstrap)")
    fraction := flag.Float64("fraction", 0, "Sampling fraction (0 = sampler default)")
    out := flag.String("out", "models/arbor", "Output prefix")
    curve := flag.Bool("curve", false, "Write an OOB-error-vs-trees curve (PNG and CSV)")
    curvePoints := flag.Int("curve_points", 8, "Points on the curve")
    flag.Parse()

    if *regen {
        logger.Info("generating synthetic dataset", zap.Int("n", *n), zap.String("out", *dataPath))
        if err := data.GenerateSynthetic(*n, *noiseVars, *seed, *dataPath); err != nil {
            logger.Fatal("failed to generate dataset", zap.Error(err))
        }
    }

    ds, err := data.LoadCSV(*dataPath)
    if err != nil { logger.Fatal("failed to load dataset", zap.Error(err)) }
    depVarID, err := ds.VarID(*depVarName)
    if err != nil { logger.Fatal("unknown response variable", zap.Error(err)) }
    logger.Info("dataset loaded",
        zap.Int("samples", ds.NumSamples()),
        zap.Int("variables", ds.NumVariables()),
        zap.String("depvar", *depVarName))

    forest := buildForest(ds, depVarID, *trees, *mtry, *minNodeSize, *threads, *seed, *importance, *replace, *fraction)
    forest.Logger = logger
    if err := forest.Init(); err != nil { logger.Fatal("forest init failed", zap.Error(err)) }
    forest.Grow()
    forest.ComputePredictionError()

    meanTreeAcc := 0.0
    for _, tree := range forest.Trees {
        meanTreeAcc += tree.OOBAccuracy()
    }
    meanTreeAcc /= float64(len(forest.Trees))

    logger.Info("training finished",
        zap.Int("trees", forest.NumTrees),
        zap.Int("mtry", forest.Mtry),
        zap.Int("min_node_size", forest.MinNodeSize),
        zap.Int("classes", len(forest.ClassValues)),
        zap.Float64("oob_error", forest.OverallPredictionError),
        zap.Float64("mean_tree_oob_accuracy", meanTreeAcc))

    if dir := filepath.Dir(*out); dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil { logger.Fatal("mkdir output", zap.Error(err)) }
    }
    if err := forest.SaveToFile(*out + ".forest"); err != nil {
        logger.Fatal("failed to save model", zap.Error(err))
    }
    if err := forest.WriteConfusionFile(*out + ".confusion"); err != nil {
        logger.Fatal("failed to write confusion matrix", zap.Error(err))
    }
    if err := forest.WritePredictionFile(*out+".prediction", forest.Predictions); err != nil {
        logger.Fatal("failed to write predictions", zap.Error(err))
    }
    if *importance {
        if err := forest.WriteImportanceFile(*out + ".importance"); err != nil {
            logger.Fatal("failed to write importance", zap.Error(err))
        }
    }
    logger.Info("model saved", zap.String("prefix", *out))

    if *curve {
        sizes, errors := oobCurve(ds, depVarID, forest, *curvePoints, logger)
        if err := writeCurveCSV(*out+"_curve.csv", sizes, errors); err != nil {
            logger.Warn("failed to write curve CSV", zap.Error(err))
        }
        if err := plotCurvePNG(*out+"_curve.png", sizes, errors); err != nil {
            logger.Warn("failed to write curve PNG", zap.Error(err))
        } else {
            logger.Info("OOB curve written", zap.String("prefix", *out+"_curve"))
        }
    }
}

func buildForest(ds data.Dataset, depVarID, trees, mtry, minNodeSize, threads int, seed int64, importance, replace bool, fraction float64) *models.Forest {
    forest := models.NewForest(ds, depVarID)
    forest.NumTrees = trees
    forest.Mtry = mtry
    forest.MinNodeSize = minNodeSize
    forest.NumThreads = threads
    forest.Seed = seed
    if importance {
        forest.ImportanceMode = models.ImportanceGini
    }
    if replace {
        forest.Sampler = models.Bootstrap{Fraction: fraction}
    } else {
        forest.Sampler = models.Subsample{Fraction: fraction}
    }
    return forest
}

// oobCurve retrains forests of increasing size and records the OOB
// error at each point.
func oobCurve(ds data.Dataset, depVarID int, trained *models.Forest, points int, logger *zap.Logger) ([]int, []float64) {
    if points < 2 { points = 2 }
    sizes := make([]int, 0, points)
    for i := 1; i <= points; i++ {
        s := trained.NumTrees * i / points
        if s < 1 { s = 1 }
        if len(sizes) == 0 || s != sizes[len(sizes)-1] { sizes = append(sizes, s) }
    }
    errors := make([]float64, len(sizes))
    for k, s := range sizes {
        forest := models.NewForest(ds, depVarID)
        forest.NumTrees = s
        forest.Mtry = trained.Mtry
        forest.MinNodeSize = trained.MinNodeSize
        forest.NumThreads = trained.NumThreads
        forest.Seed = trained.Seed
        forest.Sampler = trained.Sampler
        if err := forest.Init(); err != nil { logger.Fatal("curve forest init failed", zap.Error(err)) }
        forest.Grow()
        forest.ComputePredictionError()
        errors[k] = forest.OverallPredictionError
        logger.Info("curve point", zap.Int("trees", s), zap.Float64("oob_error", errors[k]))
    }
    return sizes, errors
}

func writeCurveCSV(path string, sizes []int, errors []float64) error {
    f, err := os.Create(path)
    if err != nil { return err }
    defer f.Close()
    w := csv.NewWriter(f)
    defer w.Flush()
    if err := w.Write([]string{"trees", "oob_error"}); err != nil { return err }
    for i := range sizes {
        rec := []string{strconv.Itoa(sizes[i]), strconv.FormatFloat(errors[i], 'f', 6, 64)}
        if err := w.Write(rec); err != nil { return err }
    }
    return nil
}

func plotCurvePNG(path string, sizes []int, errors []float64) error {
    p := plot.New()
    p.Title.Text = "OOB error vs number of trees"
    p.X.Label.Text = "Trees"
    p.Y.Label.Text = "OOB misclassification fraction"
    p.Y.Min = 0

    pts := make(plotter.XYs, len(sizes))
    for i := range sizes {
        pts[i].X = float64(sizes[i])
        pts[i].Y = errors[i]
    }
    if err := plotutil.AddLinePoints(p, "OOB", pts); err != nil { return err }
    return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
