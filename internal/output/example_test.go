package output_test

import (
	"os"
	"time"

	"github.com/aryankumar/ctxexec/internal/executor"
	"github.com/aryankumar/ctxexec/internal/output"
)

func ExampleNewFormatter() {
	results := []executor.Result{
		{Task: "task-1", Worker: "ctxexec-worker-1", Data: "tenant=acme", Duration: 2 * time.Millisecond},
	}

	formatter := output.NewFormatter(output.FormatJSON)
	_ = formatter.FormatResults(os.Stdout, results)
	// Output:
	// [
	//   {
	//     "callerRan": false,
	//     "data": "tenant=acme",
	//     "duration": "2ms",
	//     "status": "success",
	//     "task": "task-1",
	//     "worker": "ctxexec-worker-1"
	//   }
	// ]
}
