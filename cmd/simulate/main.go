// Command simulate prints how the configured progression curves play out, so a rebalance
// can be reviewed before it ships.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"timalaus_progression/internal/progression"

	"github.com/spf13/viper"
)

func main() {
	var (
		configFile = flag.String("config", "", "yaml file with a progression section; defaults apply when empty")
		pointsFlag = flag.String("points", "0,50,200,500,1000,2500,5000,10000", "comma separated run scores")
		typical    = flag.Int("typical", 1000, "score of a typical run, used for games-per-rank")
	)
	flag.Parse()

	cfg, err := loadProgression(*configFile)
	if err != nil {
		log.Fatalf("Failed to load progression config: %v", err)
	}
	engine, err := progression.NewEngine(cfg)
	if err != nil {
		log.Fatalf("Invalid progression config: %v", err)
	}

	points, err := parsePoints(*pointsFlag)
	if err != nil {
		log.Fatalf("Invalid -points: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	modes := make([]string, 0, len(cfg.Curves))
	for m := range cfg.Curves {
		modes = append(modes, m)
	}
	sort.Strings(modes)

	fmt.Fprintln(w, "XP PER RUN")
	fmt.Fprintf(w, "points\t%s\n", strings.Join(modes, "\t"))
	for _, p := range points {
		row := make([]string, len(modes))
		for i, m := range modes {
			row[i] = strconv.Itoa(engine.PointsToXP(p, m))
		}
		fmt.Fprintf(w, "%d\t%s\n", p, strings.Join(row, "\t"))
	}

	perGame := engine.PointsToXP(*typical, cfg.DefaultMode)
	fmt.Fprintf(w, "\nRANKS (typical run %d points = %d xp)\n", *typical, perGame)
	fmt.Fprintln(w, "rank\tname\ttier\tthreshold\tgames from previous\tgames total")
	var prev int64
	for _, step := range engine.Ladder() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\n",
			step.Index,
			step.Name,
			step.Tier,
			step.Threshold,
			gamesFor(step.Threshold-prev, perGame),
			gamesFor(step.Threshold, perGame),
		)
		prev = step.Threshold
	}
}

func loadProgression(path string) (progression.Config, error) {
	cfg := progression.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}
	if err := v.UnmarshalKey("progression", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parsePoints(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func gamesFor(xp int64, perGame int) int64 {
	if xp <= 0 {
		return 0
	}
	if perGame <= 0 {
		return -1
	}
	return int64(math.Ceil(float64(xp) / float64(perGame)))
}
