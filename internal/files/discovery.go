package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations over the data tree
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance. Relative
// directories passed to its methods resolve against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindMarketDataFiles finds all raw market data files (CSV and Excel)
// in the specified directory, sorted by name so runs are deterministic.
func (d *Discovery) FindMarketDataFiles(dir string) ([]FileInfo, error) {
	csvFiles, err := d.FindCSVFiles(dir)
	if err != nil {
		return nil, err
	}
	excelFiles, err := d.FindExcelFiles(dir)
	if err != nil {
		return nil, err
	}

	files := append(csvFiles, excelFiles...)
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// FindCSVFiles finds all CSV files in the specified directory
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.findByExtension(dir, ".csv")
}

// FindExcelFiles finds all Excel files in the specified directory
func (d *Discovery) FindExcelFiles(dir string) ([]FileInfo, error) {
	files, err := d.findByExtension(dir, ".xlsx", ".xls")
	if err != nil {
		return nil, err
	}

	// Excel leaves ~$ lock files next to open workbooks.
	var cleaned []FileInfo
	for _, file := range files {
		if strings.HasPrefix(file.Name, "~$") {
			continue
		}
		cleaned = append(cleaned, file)
	}
	return cleaned, nil
}

func (d *Discovery) findByExtension(dir string, extensions ...string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		matched := false
		for _, want := range extensions {
			if ext == want {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// FindSplitFiles locates the cleaned split files (train_data.csv and
// friends) in the specified directory. Missing splits are simply absent
// from the returned map.
func (d *Discovery) FindSplitFiles(dir string) (map[domain.Split]FileInfo, error) {
	files, err := d.FindCSVFiles(dir)
	if err != nil {
		return nil, err
	}

	splits := make(map[domain.Split]FileInfo)
	for _, file := range files {
		for _, split := range domain.Splits {
			if file.Name == split.FileName() {
				splits[split] = file
			}
		}
	}
	return splits, nil
}

// SymbolFromFileName derives the ticker symbol from a raw data file
// name, e.g. "BTC-USD.csv" -> "BTC-USD".
func SymbolFromFileName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
