package tx

// EstimateSize returns the expected encoded size in bytes of a transaction
// with the given shape, based on the Encode layout:
//
//	overhead: version(4) + inCount(4) + outCount(4) + payloadLen(4) + locktime(8)
//	per input: txid(32) + vout(4) + sigLen(2) + sig(~72) + pubLen(1) + pub(33)
//	per output: value(8) + addrLen(1) + addr(~34)
func EstimateSize(numInputs, numOutputs, payloadLen int) int {
	const overhead = 4 + 4 + 4 + 4 + 8
	const perInput = 32 + 4 + 2 + 72 + 1 + 33
	const perOutput = 8 + 1 + 34
	return overhead + perInput*numInputs + perOutput*numOutputs + payloadLen
}

// EstimateFee returns the fee for a transaction of the given shape at the
// given fee rate (base units per byte).
func EstimateFee(numInputs, numOutputs, payloadLen int, feeRate uint64) uint64 {
	return uint64(EstimateSize(numInputs, numOutputs, payloadLen)) * feeRate
}

// RequiredFee returns the exact fee for a fully built transaction at the
// given fee rate. More accurate than EstimateFee once signatures are known.
func RequiredFee(transaction *Transaction, feeRate uint64) (uint64, error) {
	encoded, err := transaction.Encode()
	if err != nil {
		return 0, err
	}
	return uint64(len(encoded)/2) * feeRate, nil
}
