package featureflag

type Flag string

const (
	FlagDisableAgentBroadcast Flag = "DISABLE_AGENT_BROADCAST"
	FlagDisablePairBroadcast  Flag = "DISABLE_PAIR_BROADCAST"
	FlagDisableRestAPI        Flag = "DISABLE_REST_API"
)
