package dto

// AddBookRequest HTTP入藏请求
type AddBookRequest struct {
	ISBN          string `json:"isbn" binding:"required" example:"9787115428028"`
	Title         string `json:"title" binding:"required,max=200" example:"Go语言实战"`
	Author        string `json:"author" binding:"required,max=100" example:"威廉·肯尼迪"`
	Genre         string `json:"genre" binding:"max=50" example:"Programming"`
	PublishedYear int    `json:"published_year" binding:"omitempty,min=1000,max=9999" example:"2017"`
	TotalCopies   int    `json:"total_copies" binding:"required,min=1,max=10000" example:"3"`
}

// AdjustCopiesRequest HTTP调整馆藏请求
type AdjustCopiesRequest struct {
	TotalCopies int `json:"total_copies" binding:"required,min=1,max=10000" example:"5"`
}

// ListBooksQuery 馆藏列表查询参数
type ListBooksQuery struct {
	Page     int    `form:"page" example:"1"`
	PageSize int    `form:"page_size" example:"20"`
	Keyword  string `form:"keyword" example:"Go"`
	Genre    string `form:"genre" example:"Programming"`
}
