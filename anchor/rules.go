package anchor

// SignerSource says where a CPI kind's signer account is found.
type SignerSource int

const (
	// SignerFromContext: the signer is a named field of the CPI-accounts
	// struct threaded through the CpiContext at argument 0.
	SignerFromContext SignerSource = iota
	// SignerFromArg: the signer is passed directly at ArgIndex.
	SignerFromArg
)

// CpiRule is the static signer rule for one CPI kind.
type CpiRule struct {
	Kind      CpiKind
	Source    SignerSource
	ArgIndex  int
	FieldName string
}

var cpiRules = []CpiRule{
	{Kind: SystemTransfer, Source: SignerFromContext, FieldName: "from"},
	{Kind: Transfer, Source: SignerFromContext, FieldName: "authority"},
	{Kind: MintTo, Source: SignerFromContext, FieldName: "authority"},
	{Kind: Burn, Source: SignerFromContext, FieldName: "authority"},
	{Kind: Token2022Transfer, Source: SignerFromArg, ArgIndex: 3, FieldName: "authority"},
	{Kind: Token2022TransferChecked, Source: SignerFromArg, ArgIndex: 4, FieldName: "authority"},
	{Kind: CreateAta, Source: SignerFromContext, FieldName: "authority"},
	{Kind: SetAuthority, Source: SignerFromContext, FieldName: "current_authority"},
	{Kind: CloseAccount, Source: SignerFromContext, FieldName: "authority"},
	{Kind: FreezeAccount, Source: SignerFromContext, FieldName: "authority"},
	{Kind: ThawAccount, Source: SignerFromContext, FieldName: "authority"},
	{Kind: Approve, Source: SignerFromContext, FieldName: "authority"},
	{Kind: Revoke, Source: SignerFromContext, FieldName: "authority"},
	{Kind: Token2022MintToChecked, Source: SignerFromArg, ArgIndex: 3, FieldName: "mint_authority"},
	{Kind: Token2022BurnChecked, Source: SignerFromArg, ArgIndex: 3, FieldName: "authority"},
	{Kind: SyncNative, Source: SignerFromContext, FieldName: "account"},
}

// GetCpiRule returns the signer rule for a kind, if one exists.
func GetCpiRule(kind CpiKind) (CpiRule, bool) {
	for _, r := range cpiRules {
		if r.Kind == kind {
			return r, true
		}
	}
	return CpiRule{}, false
}
