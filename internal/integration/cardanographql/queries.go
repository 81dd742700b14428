package cardanographql

const tipQuery = `query tip {
	cardano {
		tip {
			number
			hash
			slotNo
			epochNo
			forgedAt
		}
	}
}`

const blockQuery = `query blockByHash($hash: Hash32Hex!) {
	blocks(where: { hash: { _eq: $hash } }) {
		number
		hash
		slotNo
		epochNo
		forgedAt
	}
}`

const utxosQuery = `query utxoSetForAddress($address: String!) {
	utxos(
		order_by: { value: asc }
		where: { address: { _eq: $address } }
	) {
		address
		index
		txHash
		value
	}
}`

const balanceQuery = `query balanceForAddress($address: String!) {
	utxos_aggregate(where: { address: { _eq: $address } }) {
		aggregate {
			sum {
				value
			}
		}
	}
}`

const transactionQuery = `query fullTransaction($hash: Hash32Hex!) {
	cardano {
		tip {
			number
		}
	}
	transactions(where: { hash: { _eq: $hash } }) {
		fee
		hash
		blockIndex
		metadata {
			key
			value
		}
		block {
			number
			hash
		}
		inputs {
			address
			value
			sourceTxHash
			sourceTxIndex
		}
		outputs {
			address
			value
		}
	}
}`

const metadataPageQuery = `query metadataPage($label: String!, $limit: Int!, $offset: Int!) {
	transactions(
		where: { metadata: { key: { _eq: $label } } }
		offset: $offset
		limit: $limit
		order_by: [{ block: { number: desc } }, { blockIndex: desc }]
	) {
		hash
		metadata {
			key
			value
		}
	}
}`

const protocolParametersQuery = `query latestProtocolParams {
	epochs(limit: 1, order_by: { number: desc }) {
		number
		protocolParams {
			minFeeA
			minFeeB
			maxTxSize
			maxValSize
			keyDeposit
			poolDeposit
			minUTxOValue
		}
	}
}`

const submitMutation = `mutation submitTransaction($transaction: String!) {
	submitTransaction(transaction: $transaction) {
		hash
	}
}`
