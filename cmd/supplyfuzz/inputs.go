package main

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bsv-blockchain/supplyfuzz/errors"
)

type input struct {
	name string
	data []byte
}

// loadCorpus reads every path as one input. Directories contribute their regular files, sorted by name,
// without descending further.
func loadCorpus(paths []string) ([]input, error) {
	inputs := make([]input, 0, len(paths))

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.NewConfigurationError("corpus path %s", path, err)
		}

		if !info.IsDir() {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, errors.NewProcessingError("reading %s", path, err)
			}

			inputs = append(inputs, input{name: path, data: data})

			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, errors.NewProcessingError("reading directory %s", path, err)
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}

			name := filepath.Join(path, entry.Name())

			data, err := os.ReadFile(name)
			if err != nil {
				return nil, errors.NewProcessingError("reading %s", name, err)
			}

			inputs = append(inputs, input{name: name, data: data})
		}
	}

	return inputs, nil
}

// generateInputs produces count inputs of up to maxSize bytes. The same seed yields the same inputs.
func generateInputs(count, maxSize int, seed uint64) []input {
	if maxSize < 0 {
		maxSize = 0
	}

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible, not secret

	inputs := make([]input, 0, count)

	for i := 0; i < count; i++ {
		data := make([]byte, r.IntN(maxSize+1))
		for j := range data {
			data[j] = byte(r.UintN(256))
		}

		inputs = append(inputs, input{name: "generated-" + strconv.Itoa(i), data: data})
	}

	return inputs
}
