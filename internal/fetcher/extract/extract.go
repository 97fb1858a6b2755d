// Package extract pulls raw job records out of listing page markup. Both the
// static and the headless page sources parse the same Avature-style layout:
// each posting is an article element whose detail link ends in the numeric
// job ID.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobsight/jobtracker/internal/jobs"
)

var (
	jobLinkRe       = regexp.MustCompile(`(?i)JobDetail|FolderDetail`)
	jobIDRe         = regexp.MustCompile(`/(\d+)$`)
	locationClassRe = regexp.MustCompile(`(?i)location`)
)

// Records extracts every posting under root. base resolves relative detail
// links; now stamps ObservedAt.
func Records(root *goquery.Selection, base *url.URL, site jobs.Site, now time.Time) []jobs.RawJobRecord {
	var records []jobs.RawJobRecord
	root.Find("article").Each(func(_ int, article *goquery.Selection) {
		if rec, ok := Record(article, base, site, now); ok {
			records = append(records, rec)
		}
	})
	return records
}

// Record extracts one posting from an article element. Articles without a
// recognizable detail link are not postings.
func Record(article *goquery.Selection, base *url.URL, site jobs.Site, now time.Time) (jobs.RawJobRecord, bool) {
	var (
		title   string
		jobURL  string
		matched bool
	)
	article.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if !jobLinkRe.MatchString(href) {
			return true
		}
		title = strings.TrimSpace(link.Text())
		jobURL = absoluteURL(base, href)
		matched = true
		return false
	})
	if !matched || jobURL == "" {
		return jobs.RawJobRecord{}, false
	}

	jobID := ""
	if m := jobIDRe.FindStringSubmatch(jobURL); m != nil {
		jobID = m[1]
	}

	location := ""
	article.Find("[class]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		class, _ := el.Attr("class")
		if !locationClassRe.MatchString(class) {
			return true
		}
		location = strings.TrimSpace(el.Text())
		return false
	})

	company := site.Company
	if company == "" {
		company = CompanyFromURL(site.BaseURL)
	}

	return jobs.RawJobRecord{
		URL:        jobURL,
		JobID:      jobID,
		Title:      title,
		Location:   location,
		Company:    company,
		ObservedAt: now,
	}, true
}

// PageURL builds the listing URL for a page number. Page 1 is the bare
// search URL; later pages append the page parameter.
func PageURL(baseSearchURL string, page int) string {
	if page == 1 {
		return baseSearchURL
	}
	if strings.Contains(baseSearchURL, "?") {
		return fmt.Sprintf("%s&page=%d", baseSearchURL, page)
	}
	return fmt.Sprintf("%s?page=%d", baseSearchURL, page)
}

// CompanyFromURL derives a company slug from the first hostname label.
func CompanyFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	if label, _, found := strings.Cut(host, "."); found {
		return label
	}
	return host
}

func absoluteURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
