package services

import "context"

// ImportedAsset — строка импорта реестра из внешнего источника.
type ImportedAsset struct {
	Serial    string
	AssetType string
	Model     string
	BranchID  uint64
}

// AssetImporter — порт пакетной загрузки реестра. Разбор файлов (Excel, CSV)
// делает внешний инструмент; сюда приходят уже разобранные строки.
type AssetImporter interface {
	Import(ctx context.Context, rows []ImportedAsset) (imported int, err error)
}
