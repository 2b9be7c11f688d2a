package report

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
)

// DateTimeLayout формат колонки dateTime: YYMMDD HH:MM в UTC
const DateTimeLayout = "060102 15:04"

// DefaultPersona используется для имени файла, если personaName отсутствует
const DefaultPersona = "output"

// ErrNoReports возвращается, когда br_array отсутствует или пуст
var ErrNoReports = errors.New("отчёты не найдены в JSON-ответе")

var unsafeNameChars = regexp.MustCompile(`[^0-9A-Za-z_-]`)

// числа сохраняются как json.Number, чтобы не терять исходную запись
var decoder = sonic.Config{UseNumber: true}.Froze()

// Report одна запись из br_array. Значения хранятся в исходных JSON типах.
type Report map[string]any

// column колонка CSV и поле отчёта, из которого она берётся
type column struct {
	Name  string
	Field string
}

// Порядок колонок совпадает с таблицей на сайте
var columns = []column{
	{"dateTime", "createdAt"},
	{"ssss", "duration"},
	{"min", "playMinutes"},

	{"reportId", "reportId"},
	{"pid", "personaId"},
	{"personaName", "personaName"},
	{"rank", "rank"},
	{"age", "userAgeDays"},
	{"vd", "vehDestroyed"},
	{"bestVehicle", "vehBest"},
	{"bvk", "vehBestKills"},

	{"k", "kills"},
	{"d", "deaths"},
	{"hs", "headShots"},
	{"spot", "R7"},
	{"fird", "shotsFired"},
	{"hit", "shotsHit"},
	{"bwk", "bwKills"},
	{"bestWeap", "bestWeapon"},
	{"spm", "spm"},

	{"kpm", "kpm"},
	{"kdr", "kdr"},
	{"hskr", "hskrPct"},
	{"bwhs", "bwHskrPct"},
	{"acc", "accuracy"},
	{"kph", "killsPerHitPct"},
	{"max1", "kphMax1"},
	{"max2", "kphMax2"},
}

// Header возвращает заголовок таблицы
func Header() []string {
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	return header
}

type batch struct {
	Reports []Report `json:"br_array"`
}

// Decode разбирает JSON-ответ и возвращает отчёты из br_array
func Decode(body []byte) ([]Report, error) {
	var b batch
	if err := decoder.Unmarshal(body, &b); err != nil {
		return nil, errors.Wrap(err, "ошибка разбора JSON")
	}
	if len(b.Reports) == 0 {
		return nil, ErrNoReports
	}
	return b.Reports, nil
}

// Row проецирует отчёт в строку таблицы в порядке Header
func (r Report) Row() ([]string, error) {
	row := make([]string, len(columns))
	for i, c := range columns {
		switch c.Name {
		case "dateTime":
			ts, err := r.CreatedAt()
			if err != nil {
				return nil, err
			}
			row[i] = FormatDateTime(ts)
		case "spot":
			spot, err := r.Spot()
			if err != nil {
				return nil, err
			}
			row[i] = spot
		default:
			row[i] = Text(r[c.Field])
		}
	}
	return row, nil
}

// Rows проецирует все отчёты, сохраняя порядок
func Rows(reports []Report) ([][]string, error) {
	rows := make([][]string, 0, len(reports))
	for i, r := range reports {
		row, err := r.Row()
		if err != nil {
			return nil, errors.Wrapf(err, "отчёт #%d", i+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CreatedAt возвращает createdAt в секундах, отсутствующее поле даёт 0
func (r Report) CreatedAt() (int64, error) {
	switch v := r["createdAt"].(type) {
	case nil:
		return 0, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, errors.Wrapf(err, "некорректный createdAt %q", v.String())
		}
		return int64(math.Trunc(f)), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "некорректный createdAt %q", v)
		}
		return i, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errors.Newf("некорректный тип createdAt: %T", v)
	}
}

// Spot вычисляет колонку spot как R7 * 4
func (r Report) Spot() (string, error) {
	switch v := r["R7"].(type) {
	case nil:
		return "0", nil
	case json.Number:
		return multiply(v.String())
	case string:
		return multiply(strings.TrimSpace(v))
	case bool:
		if v {
			return "4", nil
		}
		return "0", nil
	default:
		return "", errors.Newf("некорректный тип R7: %T", v)
	}
}

func multiply(raw string) (string, error) {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil && i <= math.MaxInt64/4 && i >= math.MinInt64/4 {
		return strconv.FormatInt(i*4, 10), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", errors.Wrapf(err, "некорректный R7 %q", raw)
	}
	return formatFloat(f * 4), nil
}

// FormatDateTime переводит UNIX timestamp в строку YYMMDD HH:MM (UTC)
func FormatDateTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DateTimeLayout)
}

// Text приводит значение поля к тексту ячейки
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return formatNumber(val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case float64:
		return formatFloat(val)
	default:
		s, err := sonic.MarshalString(val)
		if err != nil {
			return ""
		}
		return s
	}
}

func formatNumber(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return formatFloat(f)
}

// formatFloat печатает число в кратчайшей форме, всегда с дробной частью
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Persona имя игрока из первого отчёта
func Persona(reports []Report) string {
	if len(reports) == 0 {
		return DefaultPersona
	}
	v, ok := reports[0]["personaName"]
	if !ok || v == nil {
		return DefaultPersona
	}
	return Text(v)
}

// SanitizeName заменяет всё, кроме [0-9A-Za-z_-], на подчёркивание
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// FileName имя выходного файла: override, если задан, иначе <persona>.csv
func FileName(reports []Report, override string) string {
	if override != "" {
		return override
	}
	return SanitizeName(Persona(reports)) + ".csv"
}
