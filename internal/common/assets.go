package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ledger-admin-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

const maxAssetPrecision = 18

type AssetsConfig struct {
	Assets []models.AssetConfig `yaml:"assets"`
}

func LoadAssetConfig(assetsFile string) ([]models.AssetConfig, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", assetsFile, err)
	}
	if len(config.Assets) == 0 {
		return nil, fmt.Errorf("%s lists no assets", assetsFile)
	}

	seen := make(map[string]bool, len(config.Assets))
	for i, asset := range config.Assets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("asset %s listed twice", symbol)
		}
		if asset.Precision < 0 || asset.Precision > maxAssetPrecision {
			return nil, fmt.Errorf("asset %s precision must be between 0 and %d", symbol, maxAssetPrecision)
		}
		seen[symbol] = true
	}

	return config.Assets, nil
}

// LoadAssetRegistry loads the recognized assets, falling back to the built-in
// set when the file does not exist.
func LoadAssetRegistry(assetsFile string) (*models.AssetRegistry, error) {
	if assetsFile == "" {
		return models.NewAssetRegistry(models.DefaultAssets), nil
	}

	assets, err := LoadAssetConfig(assetsFile)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("Assets file not found, using built-in assets", zap.String("file", assetsFile))
		return models.NewAssetRegistry(models.DefaultAssets), nil
	}
	if err != nil {
		return nil, err
	}

	registry := models.NewAssetRegistry(assets)
	zap.L().Info("Loaded assets", zap.Strings("symbols", registry.Symbols()))
	return registry, nil
}
