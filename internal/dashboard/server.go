package dashboard

import (
	"bufio"
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/nstop/reddit-topics/internal/domain"
)

// StartServer serves charts over the NDJSON output of an aggregation run.
func StartServer(dataFile string, port string) error {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		posts := loadData(dataFile)

		// 1. Subreddit Dominance
		pie := charts.NewPie()
		pie.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "Subreddit Dominance"}),
			charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		)

		subCounts := make(map[string]int)
		for _, p := range posts {
			subCounts[p.Subreddit]++
		}

		var pieItems []opts.PieData
		for k, v := range subCounts {
			pieItems = append(pieItems, opts.PieData{Name: k, Value: v})
		}
		pie.AddSeries("Posts", pieItems)

		// 2. Score Mass per Subreddit
		bar := charts.NewBar()
		bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Score by Subreddit"}))

		scoreSums := make(map[string]int)
		for _, p := range posts {
			scoreSums[p.Subreddit] += p.Score
		}

		var barX []string
		var barY []opts.BarData
		for k, v := range scoreSums {
			barX = append(barX, k)
			barY = append(barY, opts.BarData{Value: v})
		}
		bar.SetXAxis(barX).AddSeries("Score", barY)

		pie.Render(w)
		bar.Render(w)
	})

	return http.ListenAndServe(":"+port, nil)
}

func loadData(path string) []domain.PostSummary {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var posts []domain.PostSummary
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var p domain.PostSummary
		if err := json.Unmarshal(scanner.Bytes(), &p); err == nil {
			posts = append(posts, p)
		}
	}
	return posts
}
