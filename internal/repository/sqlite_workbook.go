package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"life-os/internal/model"
)

// headerPosition holds the header row; data rows start at 1.
const headerPosition = 0

// ErrRowNotFound is returned when an update targets a missing row.
var ErrRowNotFound = errors.New("row not found")

// SQLiteWorkbook stores tabs as ordered rows of JSON-encoded cells.
type SQLiteWorkbook struct {
	db *gorm.DB
}

func NewSQLiteWorkbook(db *gorm.DB) *SQLiteWorkbook {
	return &SQLiteWorkbook{db: db}
}

func (w *SQLiteWorkbook) Rows(ctx context.Context, tab model.Tab) ([][]string, error) {
	var records []model.SheetRow
	if err := w.db.WithContext(ctx).
		Where("tab = ? AND position > ?", string(tab), headerPosition).
		Order("position").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list %s rows: %w", tab, err)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		cells, err := decodeCells(rec.Cells)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", tab, rec.Position, err)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func (w *SQLiteWorkbook) AppendRow(ctx context.Context, tab model.Tab, row []string) error {
	cells, err := encodeCells(row)
	if err != nil {
		return err
	}
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&model.SheetRow{}).
			Where("tab = ?", string(tab)).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		return tx.Create(&model.SheetRow{Tab: string(tab), Position: last + 1, Cells: cells}).Error
	})
	if err != nil {
		return fmt.Errorf("append %s row: %w", tab, err)
	}
	return nil
}

func (w *SQLiteWorkbook) UpdateCell(ctx context.Context, tab model.Tab, rowIndex, col int, value string) error {
	if rowIndex < 0 || col < 0 {
		return fmt.Errorf("update %s: invalid cell (%d, %d)", tab, rowIndex, col)
	}
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.SheetRow
		if err := tx.Where("tab = ? AND position = ?", string(tab), rowIndex+1).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRowNotFound
			}
			return err
		}
		cells, err := decodeCells(rec.Cells)
		if err != nil {
			return err
		}
		for len(cells) <= col {
			cells = append(cells, "")
		}
		cells[col] = value
		if rec.Cells, err = encodeCells(cells); err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("update %s row %d: %w", tab, rowIndex, err)
	}
	return nil
}

func (w *SQLiteWorkbook) Header(ctx context.Context, tab model.Tab) ([]string, error) {
	var rec model.SheetRow
	err := w.db.WithContext(ctx).Where("tab = ? AND position = ?", string(tab), headerPosition).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", tab, err)
	}
	return decodeCells(rec.Cells)
}

func (w *SQLiteWorkbook) SetHeader(ctx context.Context, tab model.Tab, header []string) error {
	cells, err := encodeCells(header)
	if err != nil {
		return err
	}
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.SheetRow
		err := tx.Where("tab = ? AND position = ?", string(tab), headerPosition).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&model.SheetRow{Tab: string(tab), Position: headerPosition, Cells: cells}).Error
		case err != nil:
			return err
		}
		rec.Cells = cells
		return tx.Save(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("write %s header: %w", tab, err)
	}
	return nil
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("encode cells: %w", err)
	}
	return string(data), nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	return cells, nil
}

var _ Workbook = (*SQLiteWorkbook)(nil)
