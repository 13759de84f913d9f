package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DRSN-tech/product-search/internal/domain"
)

// record подготовленное к публикации сообщение
type record struct {
	ID      string
	Payload []byte
	Source  string
}

// loadRecords собирает записи из файлов и каталогов в детерминированном порядке.
func loadRecords(paths []string) ([]record, error) {
	files, err := collectFiles(paths)
	if err != nil {
		return nil, err
	}

	var records []record
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		objects, err := decodeObjects(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		for _, obj := range objects {
			r, err := newRecord(obj, path)
			if err != nil {
				return nil, err
			}
			records = append(records, r)
		}
	}

	return records, nil
}

func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// decodeObjects принимает один JSON-объект или массив объектов.
func decodeObjects(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var objects []map[string]any
		if err := json.Unmarshal(data, &objects); err != nil {
			return nil, err
		}
		return objects, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return []map[string]any{obj}, nil
}

// newRecord заполняет id по store_url, если краулер его не проставил.
func newRecord(obj map[string]any, source string) (record, error) {
	id, _ := obj["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		storeURL, _ := obj["store_url"].(string)
		if strings.TrimSpace(storeURL) == "" {
			return record{}, fmt.Errorf("%s: record has neither id nor store_url", source)
		}
		id = domain.ProductIDFromURL(storeURL)
		obj["id"] = id
	}

	payload, err := json.Marshal(obj)
	if err != nil {
		return record{}, fmt.Errorf("%s: %w", source, err)
	}

	return record{ID: id, Payload: payload, Source: source}, nil
}
