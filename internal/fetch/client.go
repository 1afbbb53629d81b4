// Package fetch retrieves revision, page and diff content from the
// platform's Action API.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ziadkadry99/revlens/internal/reference"
)

// DefaultUserAgent identifies the client to the platform.
const DefaultUserAgent = "revlens/0.1 (+https://github.com/ziadkadry99/revlens)"

// Options configures a Client.
type Options struct {
	// API is the api.php endpoint URL.
	API        string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the Action API.
type Client struct {
	api       string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient creates a client with defaults for unset options.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: opts.API, userAgent: ua, http: hc, logger: logger}
}

// Fetch retrieves the content a reference points to.
func (c *Client) Fetch(ctx context.Context, ref reference.PageReference) (*Content, error) {
	switch ref.Type {
	case reference.ClassDiff:
		return c.compare(ctx, ref)
	case reference.ClassRevision:
		return c.parse(ctx, ref)
	}
	return nil, Errorf("invalidreference", "reference has no classification")
}

// compareParams maps a diff reference onto action=compare parameters.
func compareParams(ref reference.PageReference) (url.Values, error) {
	v := url.Values{}
	switch {
	case reference.IsValidID(ref.OldID):
		v.Set("fromrev", ref.OldID)
		if reference.IsValidID(ref.DiffID) {
			v.Set("torev", ref.DiffID)
		} else {
			v.Set("torelative", ref.DiffID)
		}
	case reference.IsValidID(ref.DiffID):
		// "?oldid=prev&diff=123": the revision against its neighbour.
		v.Set("fromrev", ref.DiffID)
		rel := ref.OldID
		if !reference.IsValidDir(rel) {
			rel = reference.DirPrev
		}
		v.Set("torelative", rel)
	case ref.Title != "" && reference.IsValidDir(ref.DiffID):
		v.Set("fromtitle", ref.Title)
		rel := ref.DiffID
		if rel == reference.DirCur {
			// The latest revision against its parent. There is nothing after
			// the latest revision, so next and cur show it against itself.
			rel = reference.DirPrev
			if ref.OldID == reference.DirNext || ref.OldID == reference.DirCur {
				rel = reference.DirCur
			}
		}
		v.Set("torelative", rel)
	case reference.IsValidID(ref.CurID):
		v.Set("fromid", ref.CurID)
		v.Set("torelative", reference.DirPrev)
	default:
		return nil, Errorf("invalidreference", "diff reference without revisions")
	}
	return v, nil
}

type compareResponse struct {
	Compare struct {
		FromID          int    `json:"fromid"`
		FromRevID       int    `json:"fromrevid"`
		FromTitle       string `json:"fromtitle"`
		ToID            int    `json:"toid"`
		ToRevID         int    `json:"torevid"`
		ToTitle         string `json:"totitle"`
		ToUser          string `json:"touser"`
		ToTimestamp     string `json:"totimestamp"`
		ToComment       string `json:"tocomment"`
		ToTextHidden    bool   `json:"totexthidden"`
		FromTextHidden  bool   `json:"fromtexthidden"`
		ToCommentHidden bool   `json:"tocommenthidden"`
		ToUserHidden    bool   `json:"touserhidden"`
		Body            string `json:"body"`
	} `json:"compare"`
}

func (c *Client) compare(ctx context.Context, ref reference.PageReference) (*Content, error) {
	params, err := compareParams(ref)
	if err != nil {
		return nil, err
	}
	params.Set("action", "compare")
	params.Set("prop", "diff|ids|title|user|comment|timestamp")

	var resp compareResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	cmp := resp.Compare
	title := cmp.ToTitle
	if title == "" {
		title = cmp.FromTitle
	}
	pageID := cmp.ToID
	if pageID == 0 {
		pageID = cmp.FromID
	}
	return &Content{
		Type:      reference.ClassDiff,
		Title:     title,
		PageID:    pageID,
		FromRev:   cmp.FromRevID,
		ToRev:     cmp.ToRevID,
		User:      cmp.ToUser,
		Timestamp: cmp.ToTimestamp,
		Comment:   cmp.ToComment,
		Hidden:    cmp.ToTextHidden || cmp.FromTextHidden || cmp.ToCommentHidden || cmp.ToUserHidden,
		HTML:      Sanitize(cmp.Body),
	}, nil
}

type parseResponse struct {
	Parse struct {
		Title  string `json:"title"`
		PageID int    `json:"pageid"`
		RevID  int    `json:"revid"`
		Text   string `json:"text"`
	} `json:"parse"`
}

func (c *Client) parse(ctx context.Context, ref reference.PageReference) (*Content, error) {
	params := url.Values{}
	switch {
	case reference.IsValidID(ref.OldID):
		oldID := ref.OldID
		if ref.Direction == reference.DirNext {
			next, err := c.nextRevision(ctx, oldID)
			if err != nil {
				return nil, err
			}
			oldID = strconv.Itoa(next)
		}
		params.Set("oldid", oldID)
	case reference.IsValidID(ref.CurID):
		params.Set("pageid", ref.CurID)
	default:
		return nil, Errorf("invalidreference", "revision reference without id")
	}
	params.Set("action", "parse")
	params.Set("prop", "text|revid")
	params.Set("disableeditsection", "1")

	var resp parseResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	p := resp.Parse
	return &Content{
		Type:   reference.ClassRevision,
		Title:  p.Title,
		PageID: p.PageID,
		ToRev:  p.RevID,
		HTML:   Sanitize(p.Text),
	}, nil
}

// nextRevision resolves the revision following oldID.
func (c *Client) nextRevision(ctx context.Context, oldID string) (int, error) {
	params := url.Values{
		"action":     {"compare"},
		"fromrev":    {oldID},
		"torelative": {reference.DirNext},
		"prop":       {"ids"},
	}
	var resp compareResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return 0, err
	}
	if resp.Compare.ToRevID == 0 {
		return 0, Errorf("nonextrevision", "revision %s is the latest", oldID)
	}
	return resp.Compare.ToRevID, nil
}

type queryResponse struct {
	Query struct {
		BadRevIDs map[string]json.RawMessage `json:"badrevids"`
		Pages     []struct {
			PageID    int    `json:"pageid"`
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
			Revisions []struct {
				RevID    int `json:"revid"`
				ParentID int `json:"parentid"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// Validate checks that the revisions or page a reference names exist and
// returns the reference extended with the page title. It is cheaper than
// Fetch and used for lazy link activation.
func (c *Client) Validate(ctx context.Context, ref reference.PageReference) (reference.PageReference, error) {
	params := url.Values{"action": {"query"}}
	var revids []string
	for _, id := range []string{ref.OldID, ref.DiffID} {
		if reference.IsValidID(id) {
			revids = append(revids, id)
		}
	}
	switch {
	case len(revids) > 0:
		params.Set("revids", strings.Join(revids, "|"))
	case reference.IsValidID(ref.CurID):
		params.Set("pageids", ref.CurID)
	case ref.Title != "":
		params.Set("titles", ref.Title)
	default:
		return ref, Errorf("invalidreference", "nothing to validate")
	}
	params.Set("prop", "revisions")
	params.Set("rvprop", "ids")

	var resp queryResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return ref, err
	}
	if len(resp.Query.BadRevIDs) > 0 {
		return ref, Errorf("nosuchrevid", "no revision with id %s", strings.Join(revids, "|"))
	}
	if len(resp.Query.Pages) == 0 {
		return ref, Errorf("missingtitle", "the page does not exist")
	}
	page := resp.Query.Pages[0]
	if page.Missing || page.Invalid {
		return ref, Errorf("missingtitle", "the page %q does not exist", page.Title)
	}
	if page.Title != "" {
		ref.Title = page.Title
	}
	return ref, nil
}

type apiErrorResponse struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Get performs an Action API GET and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, params url.Values, out any) error {
	return c.get(ctx, params, out)
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if c.api == "" {
		return Errorf("noapi", "no api endpoint configured")
	}
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.api+"?"+params.Encode(), nil)
	if err != nil {
		return transportError(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(fmt.Errorf("reading response: %w", err))
	}
	c.logger.Debug("api request", "action", params.Get("action"), "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return &Error{Type: TypeFetch, Code: "http", Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
		return apiError(apiErr.Error.Code, apiErr.Error.Info)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Type: TypeFetch, Code: "badresponse", Message: "decoding response", Err: err}
	}
	return nil
}
