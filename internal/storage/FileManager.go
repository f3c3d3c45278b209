package storage

import (
	"os"
	"songbook/internal/providers"
	"songbook/internal/storage/interfaces"

	json "github.com/goccy/go-json"
)

type FileManager struct {
	source     Snapshotter
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, source Snapshotter, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		source:     source,
		logger:     logger,
	}
}

// SaveToFile writes a compressed snapshot through a temp file and rename,
// so a crash mid-write never leaves a truncated snapshot behind.
func (f *FileManager) SaveToFile(fileName string) error {
	jsonData, err := json.Marshal(f.source.Snapshot())
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

// LoadFromFile restores a snapshot; a missing file is a fresh start, not an error.
func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var snap Snapshot
	if err := json.Unmarshal(decompressedData, &snap); err != nil {
		f.logger.Warnf(providers.TypeStore, "Snapshot %s is not readable: %s", fileName, err)
		return err
	}

	if err := f.source.Restore(&snap); err != nil {
		return err
	}
	f.logger.Infof(providers.TypeStore, "Restored %d pages from %s", len(snap.Pages), fileName)
	return nil
}
