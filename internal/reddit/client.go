package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const (
	tokenURL = "https://www.reddit.com/api/v1/access_token"
	apiBase  = "https://oauth.reddit.com"
)

// Credentials holds script-app credentials for the authenticated API.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Complete reports whether all four credential fields are set.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

// Client is the authenticated Reddit API gateway. All outbound calls are
// paced by a shared rate limiter to respect third-party limits.
type Client struct {
	creds     Credentials
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates an authenticated gateway. requestInterval is the minimum
// gap between successive API calls within a batch.
func NewClient(creds Credentials, userAgent string, requestInterval time.Duration) *Client {
	if requestInterval <= 0 {
		requestInterval = 3 * time.Second
	}
	return &Client{
		creds:     creds,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(requestInterval), 1),
	}
}

// FetchRecent returns posts from a subreddit's new listing created at or
// after since, newest first.
func (c *Client) FetchRecent(ctx context.Context, subreddit string, since time.Time) ([]PostData, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/r/%s/new?limit=100&raw_json=1", apiBase, url.PathEscape(subreddit)))
	if err != nil {
		return nil, gatewayErr("fetch_recent", err)
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data postJSON `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, gatewayErr("fetch_recent", fmt.Errorf("decoding listing: %w", err))
	}

	var posts []PostData
	for _, child := range listing.Data.Children {
		p := child.Data.toPostData()
		if p.CreatedAt.Before(since) {
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// PostComment submits a comment on a post and returns the new comment ID.
func (c *Client) PostComment(ctx context.Context, redditPostID, text string) (string, error) {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t3_" + redditPostID},
		"text":     {text},
	}
	body, err := c.post(ctx, apiBase+"/api/comment", form)
	if err != nil {
		return "", gatewayErr("post_comment", err)
	}

	var resp struct {
		JSON struct {
			Errors [][]any `json:"errors"`
			Data   struct {
				Things []struct {
					Data struct {
						ID string `json:"id"`
					} `json:"data"`
				} `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", gatewayErr("post_comment", fmt.Errorf("decoding response: %w", err))
	}
	if len(resp.JSON.Errors) > 0 {
		return "", gatewayErr("post_comment", fmt.Errorf("comment rejected: %v", resp.JSON.Errors[0]))
	}
	if len(resp.JSON.Data.Things) == 0 {
		return "", gatewayErr("post_comment", fmt.Errorf("no comment in response"))
	}
	return resp.JSON.Data.Things[0].Data.ID, nil
}

// GetPostMetrics returns the current score and comment count of a post.
func (c *Client) GetPostMetrics(ctx context.Context, redditPostID string) (int, int, error) {
	d, err := c.thingInfo(ctx, "t3_"+redditPostID)
	if err != nil {
		return 0, 0, gatewayErr("get_post_metrics", err)
	}
	return d.Score, d.NumComments, nil
}

// GetCommentMetrics returns the current score and reply count of a comment.
// The info listing does not carry reply counts, so the count is zero unless
// the API starts returning one.
func (c *Client) GetCommentMetrics(ctx context.Context, commentID string) (int, int, error) {
	d, err := c.thingInfo(ctx, "t1_"+commentID)
	if err != nil {
		return 0, 0, gatewayErr("get_comment_metrics", err)
	}
	return d.Score, d.NumComments, nil
}

type postJSON struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

func (p postJSON) toPostData() PostData {
	author := p.Author
	if author == "" {
		author = "[deleted]"
	}
	return PostData{
		RedditID:     p.ID,
		Title:        p.Title,
		Body:         p.Selftext,
		Author:       author,
		Subreddit:    p.Subreddit,
		URL:          "https://reddit.com" + p.Permalink,
		Score:        p.Score,
		CommentCount: p.NumComments,
		CreatedAt:    time.Unix(int64(p.CreatedUTC), 0).UTC(),
	}
}

func (c *Client) thingInfo(ctx context.Context, fullname string) (*postJSON, error) {
	body, err := c.get(ctx, apiBase+"/api/info?id="+url.QueryEscape(fullname))
	if err != nil {
		return nil, err
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data postJSON `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decoding info: %w", err)
	}
	if len(listing.Data.Children) == 0 {
		return nil, fmt.Errorf("thing %s not found", fullname)
	}
	return &listing.Data.Children[0].Data, nil
}

// ensureToken fetches or refreshes the OAuth token (password grant).
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.creds.Username},
		"password":   {c.creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	c.token = tok.AccessToken
	// Refresh a minute early to avoid using a token at its expiry edge.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.do(ctx, "GET", rawURL, nil)
}

func (c *Client) post(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	return c.do(ctx, "POST", rawURL, form)
}

func (c *Client) do(ctx context.Context, method, rawURL string, form url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if form != nil {
		bodyReader = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
