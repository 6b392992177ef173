package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"propguru-go/internal/model"
)

// ErrUnsupportedFormat 表示文件扩展名不是 csv 或 xlsx。
var ErrUnsupportedFormat = errors.New("only CSV or XLSX catalog files are accepted")

// MissingColumnsError 表示目录文件缺少必需的列。
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required column: " + strings.Join(e.Columns, ", ")
}

// columnSpec 描述一个必需列：泰文表头在前，后面是可接受的英文别名。
type columnSpec struct {
	attr    model.Attribute
	headers []string
}

var requiredColumns = []columnSpec{
	{model.AttrType, []string{"ประเภท", "type", "property_type"}},
	{model.AttrProject, []string{"โครงการ", "project"}},
	{model.AttrPrice, []string{"ราคา", "price"}},
	{model.AttrStatus, []string{"รูปแบบ", "status", "listing_status"}},
	{model.AttrImage, []string{"รูป", "image", "image_url"}},
	{model.AttrLocation, []string{"ตำแหน่ง", "location"}},
	{model.AttrSchool, []string{"สถานศึกษา", "school"}},
	{model.AttrStation, []string{"สถานีรถไฟฟ้า", "station", "bts/mrt"}},
	{model.AttrMall, []string{"ห้างสรรพสินค้า", "mall"}},
	{model.AttrHospital, []string{"โรงพยาบาล", "hospital"}},
	{model.AttrAirport, []string{"สนามบิน", "airport"}},
}

// SupportedFile 根据扩展名判断是否为支持的目录文件。
func SupportedFile(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ParseCatalog 解析 CSV 或 XLSX 目录文件，返回每行的字段。
// 空白或占位值（如 "ไม่มี"）的单元格视为缺失字段；整行缺失的行被跳过。
func ParseCatalog(fileName string, r io.Reader) ([]map[model.Attribute]string, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx":
		rows, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &MissingColumnsError{Columns: primaryHeaders()}
	}

	positions, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	out := make([]map[model.Attribute]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		attrs := make(map[model.Attribute]string, len(positions))
		for attr, pos := range positions {
			if pos >= len(row) || model.IsAbsentValue(row[pos]) {
				continue
			}
			attrs[attr] = strings.TrimSpace(row[pos])
		}
		if len(attrs) == 0 {
			continue
		}
		out = append(out, attrs)
	}
	return out, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx rows: %w", err)
	}
	return rows, nil
}

// mapHeader 把表头映射到字段位置，缺少任一必需列时报错。
func mapHeader(header []string) (map[model.Attribute]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	positions := make(map[model.Attribute]int, len(requiredColumns))
	var missing []string
	for _, col := range requiredColumns {
		found := false
		for _, h := range col.headers {
			if pos, ok := index[h]; ok {
				positions[col.attr] = pos
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col.headers[0])
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return positions, nil
}

func primaryHeaders() []string {
	out := make([]string, len(requiredColumns))
	for i, c := range requiredColumns {
		out[i] = c.headers[0]
	}
	return out
}
