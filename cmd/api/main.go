package main

import (
    "net/http"
    "os"
    "strconv"

    "github.com/gin-gonic/gin"
    "go.uber.org/zap"

    "arbor/internal/data"
    "arbor/internal/models"
    "arbor/pkg/utils"
)

var forest *models.Forest

func main() {
    logger := utils.Logger()
    defer logger.Sync()

    path := os.Getenv("MODEL_PATH")
    if path == "" { path = "models/arbor.forest" }
    var err error
    forest, err = models.LoadForest(path, 0, 0)
    if err != nil {
        logger.Fatal("failed to load model", zap.String("path", path), zap.Error(err))
    }
    logger.Info("model loaded",
        zap.String("path", path),
        zap.Int("trees", forest.NumTrees),
        zap.Int("classes", len(forest.ClassValues)))

    r := gin.Default()

    r.GET("/model", handleModel)

    api := r.Group("/")
    api.Use(apiKeyMiddleware)
    api.POST("/predict", handlePredict)

    port := os.Getenv("PORT")
    if port == "" { port = "8080" }
    r.Run(":" + port)
}

func apiKeyMiddleware(c *gin.Context) {
    key := os.Getenv("API_KEY")
    if key == "" { c.Next(); return }
    got := c.GetHeader("X-API-Key")
    if got != key { c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"}); return }
    c.Next()
}

func handleModel(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{
        "trees":         forest.NumTrees,
        "variables":     forest.NumVariables(),
        "class_values":  forest.ClassValues,
    })
}

type predictReq struct {
    Rows [][]float64 `json:"rows"`
}

func handlePredict(c *gin.Context) {
    var req predictReq
    if err := c.BindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    if len(req.Rows) == 0 {
        c.JSON(http.StatusBadRequest, gin.H{"error": "no rows"})
        return
    }
    width := len(req.Rows[0])
    names := make([]string, width)
    for i := range names { names[i] = "var" + strconv.Itoa(i) }
    ds, err := data.NewMemoryFromRows(names, req.Rows)
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    preds, err := forest.Predict(ds)
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"predictions": preds})
}
