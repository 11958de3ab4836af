package vision

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels читает файл меток: одна метка на строку, пустые строки пропускаются.
// Строка вида "n01440764 tench, Tinca tinca" превращается в "tench".
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, cleanLabel(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}

	return labels, nil
}

func cleanLabel(line string) string {
	// synset-префикс ImageNet
	if len(line) > 10 && line[0] == 'n' && line[9] == ' ' && isDigits(line[1:9]) {
		line = line[10:]
	}
	if i := strings.IndexByte(line, ','); i > 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// labelAt возвращает метку по индексу класса или "class N", если меток не хватает
func labelAt(labels []string, idx int) string {
	if idx >= 0 && idx < len(labels) {
		return labels[idx]
	}
	return fmt.Sprintf("class %d", idx)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
