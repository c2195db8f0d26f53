package dining

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	logx "menubot/pkg/logx"
)

const DefaultAPIURL = "https://apps.bowdoin.edu/orestes/api.jsp"

// Client fetches per-hall menus from the campus menu API.
//
// The API takes a form POST (unit, date, meal) and answers with XML rows of
// <record><course>..</course><webLongName>..</webLongName></record>. An
// <error> element means no menu is published for that window.
type Client struct {
	apiURL string
	http   *http.Client
	log    logx.Logger
}

type ClientConfig struct {
	APIURL  string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	apiURL := strings.TrimSpace(cfg.APIURL)
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		apiURL: apiURL,
		http:   &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Fetch requests the menu for one hall/meal/date.
// A published-but-empty menu returns (Menu{}, nil); transport, status and
// parse problems return an error so the caller can skip just this hall.
func (c *Client) Fetch(ctx context.Context, hallID int, meal Meal, date time.Time) (Menu, error) {
	form := url.Values{}
	form.Set("unit", strconv.Itoa(hallID))
	form.Set("date", date.Format("20060102"))
	form.Set("meal", string(meal))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Menu{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug("menu request",
		logx.Int("hall", hallID),
		logx.String("meal", string(meal)),
		logx.String("date", date.Format("20060102")))

	resp, err := c.http.Do(req)
	if err != nil {
		return Menu{}, fmt.Errorf("menu api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Menu{}, fmt.Errorf("menu api: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Menu{}, fmt.Errorf("menu api: read body: %w", err)
	}
	return ParseMenuXML(body)
}

type menuRecord struct {
	Course      string `xml:"course"`
	WebLongName string `xml:"webLongName"`
}

var spaceRun = regexp.MustCompile(`\s+`)

// ParseMenuXML extracts category/item rows from a menu API response.
// Records may sit anywhere in the document, so the decoder walks the token
// stream rather than assuming a fixed envelope.
func ParseMenuXML(data []byte) (Menu, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var menu Menu
	index := map[string]int{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Menu{}, fmt.Errorf("menu api: parse xml: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "error":
			// Upstream signals "no records" with an error element.
			return Menu{}, nil
		case "record":
			var rec menuRecord
			if err := dec.DecodeElement(&rec, &se); err != nil {
				return Menu{}, fmt.Errorf("menu api: decode record: %w", err)
			}
			course := strings.TrimSpace(rec.Course)
			if course == "" {
				course = "Uncategorized"
			}
			item := strings.TrimSpace(spaceRun.ReplaceAllString(rec.WebLongName, " "))

			i, seen := index[course]
			if !seen {
				menu.Categories = append(menu.Categories, Category{Name: course})
				i = len(menu.Categories) - 1
				index[course] = i
			}
			if item != "" {
				menu.Categories[i].Items = append(menu.Categories[i].Items, item)
			}
		}
	}
	return menu, nil
}
