package constants

const (
	ViewData         = "view_data"
	CreateAssetType  = "create_asset_type"
	IssueAsset       = "issue_asset"
	TransferUnits    = "transfer_units"
	CreateCheckpoint = "create_checkpoint"
	PostListing      = "post_listing"
	PlaceBid         = "place_bid"
	AcceptBid        = "accept_bid"
	ClaimRevenue     = "claim_revenue"
	DepositFunds     = "deposit_funds"
	WithdrawFunds    = "withdraw_funds"
	CreateDeposit    = "create_deposit"
	RegisterUser     = "register_user"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
// The checkpoint-authority check itself lives in the ledger (per-asset
// address capability); this map only gates the HTTP surface.
var PermissionRoles = map[string][]string{
	ViewData:         {Trader, Issuer, Admin},
	CreateAssetType:  {Admin},
	IssueAsset:       {Issuer, Admin},
	TransferUnits:    {Trader, Issuer, Admin},
	CreateCheckpoint: {Issuer, Admin},
	PostListing:      {Trader, Issuer, Admin},
	PlaceBid:         {Trader, Issuer, Admin},
	AcceptBid:        {Trader, Issuer, Admin},
	ClaimRevenue:     {Trader, Issuer, Admin},
	DepositFunds:     {Admin},
	WithdrawFunds:    {Trader, Issuer, Admin},
	CreateDeposit:    {Trader, Issuer, Admin},
	RegisterUser:     {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the
// permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
