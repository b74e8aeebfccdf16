package main

import (
    "bufio"
    "flag"
    "fmt"
    "os"
    "strconv"
    "strings"

    "gonum.org/v1/plot"
    "gonum.org/v1/plot/plotter"
    "gonum.org/v1/plot/vg"

    "arbor/internal/data"
    "arbor/internal/models"
)

func main() {
    modelPath := flag.String("model", "models/arbor.forest", "Saved forest file")
    impPath := flag.String("importance", "", "Importance file written by the trainer")
    impImg := flag.String("importance_img", "", "Bar chart PNG for the importance file")
    dataPath := flag.String("data", "", "CSV to predict (optional)")
    depVarID := flag.Int("depvar_id", -1, "Response column index the model was trained with (for datasets missing it)")
    predOut := flag.String("pred_out", "predictions.txt", "Prediction report path")
    flag.Parse()

    numVariables := 0
    var ds *data.Memory
    if *dataPath != "" {
        var err error
        ds, err = data.LoadCSV(*dataPath)
        if err != nil { fmt.Println("Failed to load dataset:", err); os.Exit(1) }
        numVariables = ds.NumVariables()
    }
    depVar := *depVarID
    if depVar < 0 { depVar = 0 }

    forest, err := models.LoadForest(*modelPath, numVariables, depVar)
    if err != nil { fmt.Println("Failed to load model:", err); os.Exit(1) }

    fmt.Println("Model:", *modelPath)
    fmt.Println("Trees:", forest.NumTrees)
    fmt.Println("Variables:", forest.NumVariables())
    fmt.Println("Class values:", forest.ClassValues)

    totalNodes, totalLeaves, maxDepth := 0, 0, 0
    for _, t := range forest.Trees {
        totalNodes += t.NumNodes()
        totalLeaves += t.NumLeaves()
        if d := t.Depth(); d > maxDepth { maxDepth = d }
    }
    fmt.Printf("Nodes: %d total, %.1f per tree\n", totalNodes, float64(totalNodes)/float64(forest.NumTrees))
    fmt.Printf("Leaves: %d total, %.1f per tree\n", totalLeaves, float64(totalLeaves)/float64(forest.NumTrees))
    fmt.Println("Max depth:", maxDepth)

    if *impPath != "" {
        names, scores, err := readImportance(*impPath)
        if err != nil { fmt.Println("Failed to read importance:", err); os.Exit(1) }
        fmt.Println("Variable importance:")
        for i := range names {
            fmt.Printf("  %s: %g\n", names[i], scores[i])
        }
        if *impImg != "" {
            if err := plotImportance(*impImg, names, scores); err != nil {
                fmt.Println("Failed to plot importance:", err)
            } else {
                fmt.Println("Importance chart saved to:", *impImg)
            }
        }
    }

    if ds != nil {
        preds, err := forest.Predict(ds)
        if err != nil { fmt.Println("Prediction failed:", err); os.Exit(1) }
        if err := forest.WritePredictionFile(*predOut, preds); err != nil {
            fmt.Println("Failed to write predictions:", err)
            os.Exit(1)
        }
        fmt.Println("Predictions saved to:", *predOut)
    }
}

func readImportance(path string) ([]string, []float64, error) {
    f, err := os.Open(path)
    if err != nil { return nil, nil, err }
    defer f.Close()
    var names []string
    var scores []float64
    sc := bufio.NewScanner(f)
    for sc.Scan() {
        line := strings.TrimSpace(sc.Text())
        if line == "" { continue }
        name, value, ok := strings.Cut(line, ": ")
        if !ok { return nil, nil, fmt.Errorf("bad importance line %q", line) }
        v, err := strconv.ParseFloat(value, 64)
        if err != nil { return nil, nil, err }
        names = append(names, name)
        scores = append(scores, v)
    }
    return names, scores, sc.Err()
}

func plotImportance(path string, names []string, scores []float64) error {
    p := plot.New()
    p.Title.Text = "Gini variable importance"
    p.Y.Label.Text = "Impurity decrease"

    bars, err := plotter.NewBarChart(plotter.Values(scores), vg.Points(20))
    if err != nil { return err }
    p.Add(bars)
    p.NominalX(names...)
    return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
