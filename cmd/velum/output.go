//nolint:wrapcheck
package main

import (
	"os"

	"github.com/farcloser/primordium/format"

	"github.com/farcloser/velum"
	"github.com/farcloser/velum/internal/output"
)

func outputResults(results []*velum.AnalysisResult, formatName string) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	data := make([]*format.Data, 0, len(results))

	for _, result := range results {
		meta := output.ResultToMap(result)
		meta["summary"] = output.Summary(result)

		data = append(data, &format.Data{
			Object: result.FilePath,
			Meta:   meta,
		})
	}

	return formatter.PrintAll(data, os.Stdout)
}
