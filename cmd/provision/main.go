// Command provision exercises the two-person operator approval hook
// (spec §9 Open Question: intentionally never called from the core
// loop). It reads an approval blob from stdin or a flag, checks it
// against the secure element's stored approval hash, and exits 0 or 1 —
// nothing it does can change the supervisor's safety state.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aegissuit/supervisor/internal/secureelement"
)

func main() {
	approvalCode := flag.String("approval-code", "", "the two-person shared approval code this secure element was provisioned with")
	blobFlag := flag.String("blob", "", "the operator approval blob to verify; reads stdin if empty")
	flag.Parse()

	if *approvalCode == "" {
		fmt.Fprintln(os.Stderr, "provision: -approval-code is required")
		os.Exit(2)
	}

	element, err := secureelement.NewSoft(*approvalCode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provision: secure element init failed: %v\n", err)
		os.Exit(1)
	}

	blob := []byte(*blobFlag)
	if len(blob) == 0 {
		blob, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "provision: failed to read approval blob: %v\n", err)
			os.Exit(1)
		}
	}

	if !element.VerifyOperatorApproval(blob) {
		fmt.Fprintln(os.Stderr, "provision: approval rejected")
		os.Exit(1)
	}
	fmt.Println("provision: approval accepted")
}
