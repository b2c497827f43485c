// Command seed loads the exercise catalog from a JSON or CSV file.
//
// Rows carry exercise_name, body_part, equipment and optionally met_value;
// when the MET value is absent a heuristic based on the exercise type fills
// one in. Loading uses get-or-create semantics, so re-running the command
// against the same file is safe.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trainmate/api/internal/config"
	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository/mongo"
	"trainmate/api/internal/service"
)

type exerciseRow struct {
	Name      string  `json:"exercise_name"`
	BodyPart  string  `json:"body_part"`
	Equipment string  `json:"equipment"`
	METValue  float64 `json:"met_value,omitempty"`
}

func main() {
	var (
		filePath   = flag.String("file", "exercises.json", "path to a JSON or CSV exercise file")
		configPath = flag.String("config", ".", "directory containing config.yaml")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		mongo.EnsureExerciseIndexes(ctx, appDB.Collection("exercises"))
		cancel()
	}

	exerciseService := service.NewExerciseService(mongo.NewMongoExerciseRepository(appDB))

	rows, err := readRows(*filePath)
	if err != nil {
		log.Fatalf("FATAL: Could not read %s: %v", *filePath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var created, skipped, failed int
	for _, row := range rows {
		if row.Name == "" || row.BodyPart == "" {
			skipped++
			continue
		}
		met := row.METValue
		if met == 0 {
			met = estimateMET(row.Name, row.Equipment)
		}

		_, wasCreated, err := exerciseService.Import(ctx, domain.Exercise{
			Name:      row.Name,
			BodyPart:  row.BodyPart,
			Equipment: row.Equipment,
			METValue:  met,
		})
		if err != nil {
			failed++
			log.Printf("ERROR: %s: %v", row.Name, err)
			continue
		}
		if wasCreated {
			created++
		} else {
			skipped++
		}
	}

	fmt.Printf("Done. created=%d skipped=%d errors=%d\n", created, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// readRows dispatches on the file extension.
func readRows(path string) ([]exerciseRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readJSON(file)
	case ".csv":
		return readCSV(file)
	default:
		return nil, fmt.Errorf("unsupported file extension %q (want .json or .csv)", filepath.Ext(path))
	}
}

func readJSON(r io.Reader) ([]exerciseRow, error) {
	var rows []exerciseRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// readCSV expects a header row naming exercise_name, body_part, equipment
// and optionally met_value, in any column order.
func readCSV(r io.Reader) ([]exerciseRow, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := index["exercise_name"]; !ok {
		return nil, errors.New("header is missing the exercise_name column")
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []exerciseRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := exerciseRow{
			Name:      field(record, "exercise_name"),
			BodyPart:  field(record, "body_part"),
			Equipment: field(record, "equipment"),
		}
		if raw := field(record, "met_value"); raw != "" {
			met, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %q: bad met_value %q: %w", row.Name, raw, err)
			}
			row.METValue = met
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// estimateMET picks a MET coefficient from compendium-style buckets when
// the input file does not carry one.
func estimateMET(name, equipment string) float64 {
	lower := strings.ToLower(name)

	if containsAny(lower, "stretch", "foam roll") {
		return 2.8
	}
	if containsAny(lower, "sprint", "burpee", "jump") {
		return 8.0
	}
	if containsAny(lower, "run", "cycle", "swim", "row") {
		return 7.0
	}

	switch strings.ToLower(equipment) {
	case "bodyweight":
		if containsAny(lower, "push", "pull", "dip", "crunch", "sit-up") {
			return 7.5 // calisthenics
		}
		return 4.5
	case "barbell":
		if containsAny(lower, "bench", "squat", "deadlift", "press") {
			return 6.0 // heavy compound
		}
		return 4.0
	case "dumbbell":
		if containsAny(lower, "bench", "squat", "press") {
			return 5.5
		}
		return 3.5
	case "machine", "cable":
		return 4.0
	case "band":
		return 3.0
	case "cardio":
		return 6.0
	}

	return domain.DefaultMETValue
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
