package dto

// ListQuery holds the raw pagination parameters; malformed values fall back to defaults.
type ListQuery struct {
	Limit    string `query:"limit" example:"20"`
	Cursor   string `query:"cursor"`
	SortBy   string `query:"sortBy" example:"name"`
	Order    string `query:"order" example:"asc"`
	Q        string `query:"q" example:"bak"`
	Category string `query:"category" example:"kuliner"`
}

// BrowseQuery filters the destination dataset
type BrowseQuery struct {
	Name     string `query:"d" example:"pantai"`
	Regency  string `query:"r" example:"sleman"`
	Category string `query:"c" example:"alam"`
}

// FavoriteQuery filters a user's favorites by name prefix
type FavoriteQuery struct {
	Name string `query:"d"`
}

// FavoriteRequest names a dataset destination
type FavoriteRequest struct {
	ID int64 `json:"id" validate:"required,gt=0" example:"42"`
}

// DeletedResponse echoes the id of a removed record
type DeletedResponse struct {
	ID int64 `json:"id" example:"42"`
}

// DeleteAllResponse reports how many favorites were removed
type DeleteAllResponse struct {
	Deleted int `json:"deleted" example:"12"`
}
