package scraper

import (
	"BF4Report/internal/report"
	"crypto/tls"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// ErrEndpointNotFound страница не содержит присваивания cr_url
var ErrEndpointNotFound = errors.New("cr_url не найден в исходном коде страницы")

// crURLPattern ищет `var cr_url = "<path>";`
var crURLPattern = regexp.MustCompile(`var\s+cr_url\s*=\s*"([^"]+)"\s*;`)

// Options параметры HTTP клиента скрапера
type Options struct {
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
	// MaxBodySize лимит тела ответа в байтах, 0 без ограничения
	MaxBodySize int
}

// Result итог одного прохода: откуда взяты данные и сами отчёты
type Result struct {
	PageURL     string
	EndpointURL string
	Reports     []report.Report
}

// Scraper загружает страницу отчёта и JSON с данными
type Scraper struct {
	Collector *colly.Collector
	log       *zap.Logger
}

// NewScraper создает новый скрапер
func NewScraper(opts Options, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
		colly.MaxBodySize(opts.MaxBodySize),
	)

	// Таймаут
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	// User-Agent
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}

	if opts.InsecureSkipVerify {
		log.Warn("проверка SSL сертификатов отключена")
		c.WithTransport(&http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		})
	}

	return &Scraper{
		Collector: c,
		log:       log,
	}
}

// ExtractEndpoint возвращает путь из `var cr_url = "...";`
func ExtractEndpoint(html []byte) (string, error) {
	m := crURLPattern.FindSubmatch(html)
	if m == nil {
		return "", ErrEndpointNotFound
	}
	return string(m[1]), nil
}

// ResolveEndpoint разрешает cr_url относительно исходного адреса страницы.
// Адрес после редиректов не используется.
func ResolveEndpoint(pageURL, path string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", errors.Wrapf(err, "некорректный адрес страницы %s", pageURL)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrapf(err, "не удалось разрешить cr_url %q относительно %s", path, pageURL)
	}
	return base.ResolveReference(ref).String(), nil
}

// fetch выполняет один GET. Ошибки сети и статусы вне 2xx возвращаются как ошибка.
func (s *Scraper) fetch(rawURL string) (*colly.Response, error) {
	c := s.Collector.Clone()
	// статус проверяется в OnResponse, colly иначе считает ошибкой всё начиная с 203
	c.ParseHTTPErrorResponse = true

	var (
		resp     *colly.Response
		fetchErr error
	)

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode/100 != 2 {
			fetchErr = errors.Newf("HTTP %d: %s", r.StatusCode, http.StatusText(r.StatusCode))
			return
		}
		resp = r
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	err := c.Visit(rawURL)
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.Newf("пустой ответ от %s", rawURL)
	}
	return resp, nil
}

// FetchPage загружает HTML страницы
func (s *Scraper) FetchPage(pageURL string) (*colly.Response, error) {
	s.log.Info("загрузка страницы", zap.String("url", pageURL))

	resp, err := s.fetch(pageURL)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка загрузки страницы")
	}

	s.log.Debug("страница загружена",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
	)
	return resp, nil
}

// FetchReports загружает JSON по адресу endpoint и разбирает br_array
func (s *Scraper) FetchReports(endpointURL string) ([]report.Report, error) {
	s.log.Info("загрузка JSON", zap.String("url", endpointURL))

	resp, err := s.fetch(endpointURL)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка загрузки JSON")
	}

	reports, err := report.Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	s.log.Info("отчёты получены", zap.Int("count", len(reports)))
	return reports, nil
}

// Scrape выполняет весь проход: страница -> cr_url -> JSON -> отчёты
func (s *Scraper) Scrape(pageURL string) (*Result, error) {
	page, err := s.FetchPage(pageURL)
	if err != nil {
		return nil, err
	}

	path, err := ExtractEndpoint(page.Body)
	if err != nil {
		return nil, err
	}

	endpoint, err := ResolveEndpoint(pageURL, path)
	if err != nil {
		return nil, err
	}
	s.log.Debug("найден cr_url", zap.String("path", path), zap.String("endpoint", endpoint))

	reports, err := s.FetchReports(endpoint)
	if err != nil {
		return nil, err
	}

	return &Result{
		PageURL:     pageURL,
		EndpointURL: endpoint,
		Reports:     reports,
	}, nil
}
