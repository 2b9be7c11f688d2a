package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
)

// SheetName лист с отчётами в xlsx
const SheetName = "Reports"

// WriteCSV пишет заголовок и по одной строке на отчёт
func WriteCSV(w io.Writer, reports []Report) error {
	rows, err := Rows(reports)
	if err != nil {
		return err
	}
	return writeCSVRows(w, rows)
}

func writeCSVRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(Header()); err != nil {
		return errors.Wrap(err, "ошибка записи заголовка")
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "ошибка записи строк")
	}
	return nil
}

// WriteXLSX пишет те же данные в книгу Excel на лист Reports
func WriteXLSX(w io.Writer, reports []Report) error {
	rows, err := Rows(reports)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "ошибка создания листа")
	}

	header := Header()
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "ошибка записи заголовка")
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "ошибка адреса ячейки")
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "ошибка записи строки %d", i+1)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "ошибка сериализации xlsx")
	}
	return nil
}

// Save сохраняет отчёты в файл, перезаписывая его целиком.
// Формат выбирается по расширению: .xlsx или CSV для всего остального.
// Файл сначала собирается в памяти и пишется через временный файл,
// поэтому при ошибке старое содержимое не портится.
func Save(path string, reports []Report) error {
	var buf bytes.Buffer

	write := WriteCSV
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		write = WriteXLSX
	}
	if err := write(&buf, reports); err != nil {
		return err
	}

	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic заменяет содержимое path через временный файл рядом с ним.
// Если path это симлинк, заменяется файл, на который он указывает.
// Права существующего файла сохраняются, новый файл получает 0644.
func writeFileAtomic(path string, data []byte) (err error) {
	target, mode, err := resolveTarget(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "ошибка создания временного файла")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "ошибка записи файла")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "ошибка закрытия файла")
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return errors.Wrap(err, "ошибка смены прав файла")
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return errors.Wrapf(err, "ошибка сохранения %s", path)
	}
	return nil
}

// resolveTarget возвращает реальный путь файла и права для записи
func resolveTarget(path string) (string, os.FileMode, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return path, 0o644, nil
	}
	if err != nil {
		return "", 0, errors.Wrapf(err, "ошибка доступа к %s", path)
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", 0, errors.Wrapf(err, "ошибка разрешения пути %s", path)
	}
	return target, info.Mode().Perm(), nil
}
