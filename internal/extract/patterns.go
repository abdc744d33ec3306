package extract

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d{1,3}?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s]+`)
	isoDatePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	shortDatePattern = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
)

// PatternTags extracts the fixed set of pattern-based tags (emails, phone
// numbers, URLs, ISO/short dates) the core always applies in addition to
// whatever a TagExtractor returns, prefixing each match by kind.
func PatternTags(content string) []string {
	var tags []string
	for _, m := range emailPattern.FindAllString(content, -1) {
		tags = append(tags, "email:"+m)
	}
	for _, m := range phonePattern.FindAllString(content, -1) {
		tags = append(tags, "phone:"+m)
	}
	for _, m := range urlPattern.FindAllString(content, -1) {
		tags = append(tags, "url:"+m)
	}
	for _, m := range isoDatePattern.FindAllString(content, -1) {
		tags = append(tags, "date:"+m)
	}
	for _, m := range shortDatePattern.FindAllString(content, -1) {
		tags = append(tags, "date:"+m)
	}
	return tags
}
