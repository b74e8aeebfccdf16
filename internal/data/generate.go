package data

import (
    "encoding/csv"
    "math/rand"
    "os"
    "path/filepath"
    "strconv"
)

// GenerateSynthetic writes an n-sample two-class dataset: two informative
// variables, the rest uniform noise, class in the last column. The class
// follows the sign structure of x0 and x1 with a small label-noise rate.
func GenerateSynthetic(n, numNoiseVars int, seed int64, outPath string) error {
    if dir := filepath.Dir(outPath); dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return err
        }
    }
    f, err := os.Create(outPath)
    if err != nil {
        return err
    }
    defer f.Close()

    w := csv.NewWriter(f)
    defer w.Flush()

    header := []string{"x0", "x1"}
    for i := 0; i < numNoiseVars; i++ {
        header = append(header, "noise"+strconv.Itoa(i))
    }
    header = append(header, "class")
    if err := w.Write(header); err != nil {
        return err
    }

    rng := rand.New(rand.NewSource(seed))
    for i := 0; i < n; i++ {
        x0 := rng.NormFloat64()
        x1 := rng.NormFloat64()
        class := 0
        if x0+0.5*x1 > 0 {
            class = 1
        }
        if rng.Float64() < 0.05 {
            class = 1 - class
        }

        rec := []string{
            strconv.FormatFloat(x0, 'f', 4, 64),
            strconv.FormatFloat(x1, 'f', 4, 64),
        }
        for j := 0; j < numNoiseVars; j++ {
            rec = append(rec, strconv.FormatFloat(rng.Float64()*10, 'f', 4, 64))
        }
        rec = append(rec, strconv.Itoa(class))
        if err := w.Write(rec); err != nil {
            return err
        }
    }
    return nil
}
