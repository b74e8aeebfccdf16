package models

import (
    "bufio"
    "fmt"
    "math"
    "os"
    "strconv"
)

func formatValue(v float64) string {
    return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteConfusionFile writes the overall OOB misclassification fraction
// and a class-by-class count matrix, rows = predicted, columns = true.
// Column padding shrinks one space per magnitude decade.
func (f *Forest) WriteConfusionFile(path string) error {
    file, err := os.Create(path)
    if err != nil {
        return fmt.Errorf("could not write to confusion file %s: %w", path, err)
    }
    defer file.Close()
    w := bufio.NewWriter(file)

    fmt.Fprintf(w, "Overall OOB prediction error (Fraction missclassified): %s\n", formatValue(f.OverallPredictionError))
    fmt.Fprintln(w)
    fmt.Fprintln(w, "Class specific prediction errors:")
    fmt.Fprint(w, "           ")
    for _, classValue := range f.ClassValues {
        fmt.Fprintf(w, "     %s", formatValue(classValue))
    }
    fmt.Fprintln(w)
    for _, predictedValue := range f.ClassValues {
        fmt.Fprintf(w, "predicted %s     ", formatValue(predictedValue))
        for _, realValue := range f.ClassValues {
            count := f.Confusion[[2]float64{realValue, predictedValue}]
            fmt.Fprintf(w, "%d%s", count, countPadding(count))
        }
        fmt.Fprintln(w)
    }
    return w.Flush()
}

func countPadding(count int) string {
    switch {
    case count < 10:
        return "     "
    case count < 100:
        return "    "
    case count < 1000:
        return "   "
    case count < 10000:
        return "  "
    case count < 100000:
        return " "
    }
    return ""
}

// WritePredictionFile writes one predicted value per line in sample
// order. Samples with no OOB vote appear as NaN.
func (f *Forest) WritePredictionFile(path string, predictions []float64) error {
    file, err := os.Create(path)
    if err != nil {
        return fmt.Errorf("could not write to prediction file %s: %w", path, err)
    }
    defer file.Close()
    w := bufio.NewWriter(file)

    fmt.Fprintln(w, "Predictions: ")
    for _, p := range predictions {
        if math.IsNaN(p) {
            fmt.Fprintln(w, "NA")
        } else {
            fmt.Fprintln(w, formatValue(p))
        }
    }
    return w.Flush()
}

// WriteImportanceFile writes one "name: score" line per splittable
// variable in variable order.
func (f *Forest) WriteImportanceFile(path string) error {
    if f.data == nil {
        return fmt.Errorf("forest has no dataset, importance names unknown")
    }
    file, err := os.Create(path)
    if err != nil {
        return fmt.Errorf("could not write to importance file %s: %w", path, err)
    }
    defer file.Close()
    w := bufio.NewWriter(file)

    names := f.data.VariableNames()
    for varID, name := range names {
        slot := f.importanceIndex[varID]
        if slot < 0 {
            continue
        }
        fmt.Fprintf(w, "%s: %s\n", name, formatValue(f.VariableImportance[slot]))
    }
    return w.Flush()
}
