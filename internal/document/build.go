package document

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Build renders doc in the canonical markdown layout: title line, then every
// section of the kind in fixed order with every field present.
func Build(doc Document) string {
	s := schemaFor(doc.Kind())
	rf := recordFields(doc)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n", doc.Kind().Title(), doc.Name())

	for _, sec := range s.sections {
		fmt.Fprintf(&b, "\n## %s\n", sec.title)
		switch {
		case sec.listKey != "":
			items := rf[sec.listKey].Interface().([]string)
			if len(items) > 0 {
				b.WriteString("\n")
			}
			for _, item := range items {
				fmt.Fprintf(&b, "- %s\n", indentContinuation(item))
			}
		case sec.criteriaKey != "":
			criteria := NormalizeCriteria(rf[sec.criteriaKey].Interface().(map[string]int))
			if len(criteria) > 0 {
				b.WriteString("\n")
			}
			names := make([]string, 0, len(criteria))
			for name := range criteria {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(&b, "- **%s**: %d\n", name, criteria[name])
			}
		default:
			b.WriteString("\n")
			for _, f := range sec.fields {
				value := formatValue(rf[f.key])
				if value == "" {
					fmt.Fprintf(&b, "- **%s**:\n", f.label)
					continue
				}
				fmt.Fprintf(&b, "- **%s**: %s\n", f.label, indentContinuation(value))
			}
		}
	}
	return b.String()
}

// indentContinuation keeps multi-line values inside their list item.
func indentContinuation(v string) string {
	v = strings.TrimSpace(v)
	if !strings.Contains(v, "\n") {
		return v
	}
	lines := strings.Split(v, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = "  " + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int:
		return strconv.Itoa(int(v.Int()))
	}
	return ""
}

// recordFields indexes the md-tagged struct fields of doc by key.
func recordFields(doc Document) map[string]reflect.Value {
	rv := reflect.ValueOf(doc).Elem()
	rt := rv.Type()
	out := make(map[string]reflect.Value, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		if tag := rt.Field(i).Tag.Get("md"); tag != "" {
			out[tag] = rv.Field(i)
		}
	}
	return out
}
