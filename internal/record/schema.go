package record

import (
	_ "embed"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/calebraw/sigil/internal/fault"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
	schemaErr  error
)

func compiledSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fault.Wrap(fault.KindEnvironment, "compiling record schema", err)
			return
		}
		schemaVal = v.LookupPath(cue.ParsePath("#Record"))
		if err := schemaVal.Err(); err != nil {
			schemaErr = fault.Wrap(fault.KindEnvironment, "resolving #Record", err)
		}
	})
	return schemaVal, schemaErr
}

// ValidateShape checks one record line against the embedded CUE schema.
// Shape failures are integrity failures: a record that does not match the
// contract cannot be trusted regardless of its digest.
func ValidateShape(line []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("record.json", line)
	if err != nil {
		return fault.Wrap(fault.KindIntegrity, "record is not valid JSON", err)
	}

	val := schema.Context().BuildExpr(expr)
	if err := val.Err(); err != nil {
		return fault.Wrap(fault.KindIntegrity, "building record value", err)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return fault.Wrap(fault.KindIntegrity, "record shape", err)
	}
	return nil
}
