package fluent

import (
	"reflect"
	"strings"
	"unicode"
)

var (
	// DefaultColumnNamer maps struct field names to column names when rows
	// are bound into structs. Default is ToUnderscore ("CategoryId" is
	// "category_id").
	DefaultColumnNamer func(string) string = ToUnderscore

	// DefaultTableNamer maps struct names to table names for
	// Session.Model. Default is ToPluralUnderscore ("ProductReview" is
	// "product_reviews").
	DefaultTableNamer func(string) string = ToPluralUnderscore
)

// ToTableName returns the table of a struct, a pointer to one or a slice of
// them. A non-empty TableName() string method wins; otherwise the type name
// is passed through DefaultTableNamer. Anonymous structs and other values
// have no table name and get "".
func ToTableName(object interface{}) string {
	if t, ok := object.(interface{ TableName() string }); ok {
		if name := t.TableName(); name != "" {
			return name
		}
	}
	rt := reflect.TypeOf(object)
	for rt != nil && (rt.Kind() == reflect.Ptr || rt.Kind() == reflect.Slice) {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct || rt.Name() == "" {
		return ""
	}
	if DefaultTableNamer == nil {
		return rt.Name()
	}
	return DefaultTableNamer(rt.Name())
}

// ToPlural returns the plural of an English noun: "category" becomes
// "categories", "box" becomes "boxes" and "product" becomes "products".
func ToPlural(word string) string {
	n := len(word)
	switch {
	case n == 0:
		return ""
	case n > 1 && word[n-1] == 'y' && !strings.ContainsRune("aeiouAEIOU", rune(word[n-2])):
		return word[:n-1] + "ies"
	case strings.ContainsRune("sxo", rune(word[n-1])),
		strings.HasSuffix(word, "ch"), strings.HasSuffix(word, "sh"):
		return word + "es"
	}
	return word + "s"
}

// ToPluralUnderscore is ToPlural(ToUnderscore(name)), so "PostComment" is
// "post_comments".
func ToPluralUnderscore(name string) string {
	return ToPlural(ToUnderscore(name))
}

// ToUnderscore converts a CamelCase name to snake_case. Runs of capitals are
// kept together: "FullName" is "full_name", "CategoryID" is "category_id"
// and "HTTPServer" is "http_server". Digits stay with the preceding word.
func ToUnderscore(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 && runes[i-1] != '_' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func toColumnName(fieldName string) string {
	if DefaultColumnNamer == nil {
		return fieldName
	}
	return DefaultColumnNamer(fieldName)
}
