package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/yourusername/domainspotter/config"
)

// LoadDomains reads the domains already present in a report file of the
// given format.
func LoadDomains(path string, format config.Format) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch format {
	case config.FormatJSON:
		return loadJSON(file)
	case config.FormatCSV:
		return loadCSV(file)
	default:
		return loadTXT(file)
	}
}

func loadTXT(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	domains := make([]string, 0, 64)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			domains = append(domains, line)
		}
	}
	return domains, scanner.Err()
}

func loadJSON(r io.Reader) ([]string, error) {
	decoder := json.NewDecoder(bufio.NewReader(r))
	domains := make([]string, 0, 64)
	for {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if record.Domain != "" {
			domains = append(domains, record.Domain)
		}
	}
	return domains, nil
}

func loadCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	domains := make([]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) > 1 && row[0] == csvHeader[0] && row[1] == csvHeader[1] {
			continue
		}
		if len(row) > 1 && row[1] != "" {
			domains = append(domains, row[1])
		}
	}
	return domains, nil
}
