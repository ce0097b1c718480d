package expand

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sourceplane/kronjob/internal/model"
)

// MergeStrategy defines how a field combines across merge layers.
type MergeStrategy string

const (
	// StrategyOverride keeps the value of the most specific layer that sets the field.
	StrategyOverride MergeStrategy = "override"
	// StrategyAppend concatenates list values in layer order.
	StrategyAppend MergeStrategy = "append"
	// StrategyJoin joins the non-empty string values of every layer with NameSeparator.
	StrategyJoin MergeStrategy = "join"
)

// NameSeparator joins name parts of the base record, namespace override and job.
const NameSeparator = "-"

// Field is one entry of the merge table.
type Field struct {
	Name     string
	Strategy MergeStrategy
	index    int
}

var fieldTable = buildFieldTable(reflect.TypeOf(model.Fragment{}))

func buildFieldTable(t reflect.Type) []Field {
	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			panic(fmt.Sprintf("field %s has no wire name", sf.Name))
		}

		switch sf.Type.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map:
		default:
			panic(fmt.Sprintf("field %s must be nillable to mark absence", sf.Name))
		}

		strategy := MergeStrategy(sf.Tag.Get("merge"))
		switch strategy {
		case "":
			strategy = StrategyOverride
		case StrategyOverride:
		case StrategyAppend:
			if sf.Type.Kind() != reflect.Slice {
				panic(fmt.Sprintf("field %s: append requires a slice", sf.Name))
			}
		case StrategyJoin:
			if sf.Type.Kind() != reflect.Pointer || sf.Type.Elem().Kind() != reflect.String {
				panic(fmt.Sprintf("field %s: join requires a string pointer", sf.Name))
			}
		default:
			panic(fmt.Sprintf("field %s: unknown merge strategy %q", sf.Name, strategy))
		}

		fields = append(fields, Field{Name: name, Strategy: strategy, index: i})
	}
	return fields
}

// Merge combines layers from least to most specific into a new fragment.
// The result may share memory with the layers.
func Merge(layers ...*model.Fragment) model.Fragment {
	var merged model.Fragment
	dst := reflect.ValueOf(&merged).Elem()

	for _, field := range fieldTable {
		present := make([]reflect.Value, 0, len(layers))
		for _, layer := range layers {
			if layer == nil {
				continue
			}
			v := reflect.ValueOf(layer).Elem().Field(field.index)
			if !v.IsNil() {
				present = append(present, v)
			}
		}
		if len(present) == 0 {
			continue
		}

		target := dst.Field(field.index)
		switch field.Strategy {
		case StrategyOverride:
			target.Set(present[len(present)-1])
		case StrategyAppend:
			list := reflect.MakeSlice(target.Type(), 0, 0)
			for _, v := range present {
				list = reflect.AppendSlice(list, v)
			}
			target.Set(list)
		case StrategyJoin:
			parts := make([]string, 0, len(present))
			for _, v := range present {
				if s := v.Elem().String(); s != "" {
					parts = append(parts, s)
				}
			}
			joined := reflect.New(target.Type().Elem())
			joined.Elem().SetString(strings.Join(parts, NameSeparator))
			target.Set(joined)
		}
	}

	return merged
}
