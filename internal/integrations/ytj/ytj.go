package ytj

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

const (
	namespace        = "http://www.ytj.fi/"
	actionDetails    = "wmYritysTiedotV3"
	actionSearch     = "wmYritysHaku"
	timestampLayout  = "2006-01-02 15:04:05"
	registryTimezone = 3 * time.Hour
)

// Client queries the public company registry over SOAP
type Client struct {
	url        string
	customerID string
	secret     string
	client     *http.Client
	now        func() time.Time
	log        *logrus.Logger
}

// NewClient initializes a new registry client
func NewClient(url, customerID, secret string, timeout time.Duration, log *logrus.Logger) *Client {
	return &Client{
		url:        url,
		customerID: customerID,
		secret:     secret,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
		log: log,
	}
}

// sign returns the request timestamp and the SHA1 signature over customer id, secret and timestamp
func (c *Client) sign() (timestamp, signature string) {
	timestamp = c.now().UTC().Add(registryTimezone).Format(timestampLayout)
	sum := sha1.Sum([]byte(c.customerID + c.secret + timestamp))
	return timestamp, strings.ToUpper(hex.EncodeToString(sum[:]))
}

// buildSOAPRequest creates a signed SOAP envelope for action with the given parameters in order
func (c *Client) buildSOAPRequest(action string, params [][2]string) (string, error) {
	timestamp, signature := c.sign()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	envelope := doc.CreateElement("soap:Envelope")
	envelope.CreateAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	envelope.CreateAttr("xmlns:xsd", "http://www.w3.org/2001/XMLSchema")
	envelope.CreateAttr("xmlns:soap", "http://schemas.xmlsoap.org/soap/envelope/")
	body := envelope.CreateElement("soap:Body")
	call := body.CreateElement(action)
	call.CreateAttr("xmlns", namespace)

	for _, p := range params {
		call.CreateElement(p[0]).SetText(p[1])
	}
	call.CreateElement("kieli").SetText("fi")
	call.CreateElement("asiakastunnus").SetText(c.customerID)
	call.CreateElement("aikaleima").SetText(timestamp)
	call.CreateElement("tarkiste").SetText(signature)
	call.CreateElement("tiketti")

	return doc.WriteToString()
}

// sendRequest posts the envelope and returns the raw response body
func (c *Client) sendRequest(ctx context.Context, action, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", namespace+action)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	c.log.Debugf("Registry XML response: %s", string(body))
	return body, nil
}

// parseXMLResponse extracts every element carrying a business id
func parseXMLResponse(rawBody []byte) ([]models.CompanyRecord, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty XML response")
	}

	if fault := findFirst(root, "Fault"); fault != nil {
		msg := "unknown fault"
		if s := findFirst(fault, "faultstring"); s != nil {
			msg = strings.TrimSpace(s.Text())
		}
		return nil, fmt.Errorf("registry fault: %s", msg)
	}

	var records []models.CompanyRecord
	walk(root, func(e *etree.Element) {
		id := childText(e, "YTunnus")
		if id == "" {
			return
		}
		records = append(records, models.CompanyRecord{
			BusinessID:       id,
			Name:             childText(e, "Toiminimi", "Nimi", "Yritysnimi"),
			CompanyForm:      childText(e, "Yritysmuoto"),
			RegistrationDate: childText(e, "YritysTunnusAlkuPvm", "Rekisterointipvm"),
			Industry:         childText(e, "Toimiala", "ToimialaNimi"),
			Website:          childText(e, "Kotisivu", "Www"),
		})
	})
	return records, nil
}

func walk(e *etree.Element, fn func(*etree.Element)) {
	fn(e)
	for _, child := range e.ChildElements() {
		walk(child, fn)
	}
}

func findFirst(e *etree.Element, tag string) *etree.Element {
	var found *etree.Element
	walk(e, func(el *etree.Element) {
		if found == nil && strings.EqualFold(el.Tag, tag) {
			found = el
		}
	})
	return found
}

// childText returns the text of the first direct child matching any of tags, case-insensitively
func childText(e *etree.Element, tags ...string) string {
	for _, child := range e.ChildElements() {
		for _, tag := range tags {
			if strings.EqualFold(child.Tag, tag) {
				if text := strings.TrimSpace(child.Text()); text != "" {
					return text
				}
			}
		}
	}
	return ""
}

func (c *Client) call(ctx context.Context, action string, params [][2]string) (*models.RegistryResult, error) {
	soapRequest, err := c.buildSOAPRequest(action, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	body, err := c.sendRequest(ctx, action, soapRequest)
	if err != nil {
		return nil, err
	}
	companies, err := parseXMLResponse(body)
	if err != nil {
		return nil, err
	}
	return &models.RegistryResult{Companies: companies, RawXML: string(body)}, nil
}

// FetchCompanyDetails retrieves a company by business id
func (c *Client) FetchCompanyDetails(ctx context.Context, businessID string) (*models.RegistryResult, error) {
	result, err := c.call(ctx, actionDetails, [][2]string{{"ytunnus", businessID}})
	if err != nil {
		return nil, err
	}
	c.log.Infof("Fetched registry details for %s", businessID)
	return result, nil
}

// SearchCompanies searches companies by name keyword
func (c *Client) SearchCompanies(ctx context.Context, keyword string, activeOnly bool) (*models.RegistryResult, error) {
	result, err := c.call(ctx, actionSearch, [][2]string{
		{"hakusana", keyword},
		{"yritysmuoto", ""},
		{"sanahaku", "true"},
		{"ytunnus", ""},
		{"voimassaolevat", fmt.Sprintf("%t", activeOnly)},
	})
	if err != nil {
		return nil, err
	}
	c.log.Infof("Registry search %q returned %d companies", keyword, len(result.Companies))
	return result, nil
}
