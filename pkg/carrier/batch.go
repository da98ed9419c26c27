package carrier

import (
	"context"
	"fmt"
)

// ValidateBatchSize enforces the carrier's batch limit up front. The
// request is rejected before any HTTP call is made.
func ValidateBatchSize(carrierID string, n, limit int) error {
	if n == 0 {
		return NewError(carrierID, Validation, "batch is empty")
	}
	if limit > 0 && n > limit {
		return NewError(carrierID, Validation,
			fmt.Sprintf("too many items in batch: %d exceeds the carrier limit of %d", n, limit))
	}
	return nil
}

// batchCounts derives success/failure tallies. Carriers do not report
// these; they are always computed from the per-item results.
func batchCounts(total, success int) (failure int, allOK, allFail, someFail bool) {
	failure = total - success
	if total == 0 {
		return 0, false, false, false
	}
	allOK = failure == 0
	allFail = success == 0
	someFail = !allOK && !allFail
	return failure, allOK, allFail, someFail
}

// batchSummary renders the user-visible summary line for a batch.
func batchSummary(total, success, failure int, metadataOnly bool) string {
	switch {
	case metadataOnly:
		return fmt.Sprintf("Metadata only for %d", total)
	case failure == 0:
		return fmt.Sprintf("All %d succeeded", total)
	case success == 0:
		return fmt.Sprintf("All %d failed", total)
	default:
		return fmt.Sprintf("Mixed: %d succeeded, %d failed", success, failure)
	}
}

// BuildParcelsResponse aggregates per-item parcel results into a batch
// response with derived counts and summary.
func BuildParcelsResponse(results []ParcelResult, raw any) *CreateParcelsResponse {
	success := 0
	for _, r := range results {
		if r.Resource.Status != ResourceFailed {
			success++
		}
	}
	failure, allOK, allFail, someFail := batchCounts(len(results), success)
	return &CreateParcelsResponse{
		Results:            results,
		SuccessCount:       success,
		FailureCount:       failure,
		TotalCount:         len(results),
		AllSucceeded:       allOK,
		AllFailed:          allFail,
		SomeFailed:         someFail,
		Summary:            batchSummary(len(results), success, failure, false),
		RawCarrierResponse: raw,
	}
}

// BuildLabelsResponse aggregates per-item label results. A successful
// batch that yielded no label file (test mode, metadata-only carrier
// response) is summarized as metadata only.
func BuildLabelsResponse(results []LabelResult, files []LabelFile, raw any) *CreateLabelsResponse {
	success := 0
	for _, r := range results {
		if r.Status != ResourceFailed {
			success++
		}
	}
	failure, allOK, allFail, someFail := batchCounts(len(results), success)
	metadataOnly := len(files) == 0 && success > 0 && failure == 0
	return &CreateLabelsResponse{
		Results:            results,
		Files:              files,
		SuccessCount:       success,
		FailureCount:       failure,
		TotalCount:         len(results),
		AllSucceeded:       allOK,
		AllFailed:          allFail,
		SomeFailed:         someFail,
		Summary:            batchSummary(len(results), success, failure, metadataOnly),
		RawCarrierResponse: raw,
	}
}

// SequentialParcels simulates a native batch call for carriers without
// one: the singular operation runs per item, in input order. A typed
// carrier failure downgrades that item to failed; anything else is
// wrapped first. The batch itself never aborts mid-way.
func SequentialParcels(ctx context.Context, carrierID string, parcels []Parcel,
	create func(ctx context.Context, p Parcel) (*CarrierResource, error)) []ParcelResult {

	results := make([]ParcelResult, 0, len(parcels))
	for _, p := range parcels {
		res, err := create(ctx, p)
		if err != nil {
			ce := WrapError(carrierID, err)
			results = append(results, ParcelResult{
				InputID:  p.ID,
				Resource: FailedResource(ce.Raw),
				Errors:   []ItemError{{Code: ce.CarrierCode, Message: ce.Message}},
			})
			continue
		}
		results = append(results, ParcelResult{InputID: p.ID, Resource: *res})
	}
	return results
}
