package handler

// Route paths.
const (
	RouteRoot       = "/"
	RouteLogin      = "/login"
	RouteRegister   = "/register"
	RouteProducts   = "/products"
	RouteNewProduct = "/products/new"
)

// Template names.
const (
	TmplDashboard       = "admin/dashboard"
	TmplProducts        = "admin/products"
	TmplProductForm     = "admin/product_form"
	TmplProductDelete   = "admin/product_delete"
	TmplCustomers       = "admin/customers"
	TmplEvents          = "admin/events"
	TmplNotFound        = "admin/not_found"
	TmplLogin           = "auth/login"
	TmplRegister        = "auth/register"
	TmplRegisterSuccess = "auth/register_success"
)

// Flash types, mirrored from render for brevity at call sites.
const (
	flashTypeSuccess = "success"
	flashTypeError   = "error"
)

// User-facing messages.
const (
	MsgLoginFailed          = "Google login failed"
	MsgRegisterFailed       = "Google registration failed"
	MsgAccountCreatedLogin  = "Your account is created, now you can login via Google."
	MsgAccountCreated       = "Your account is created successfully!"
	MsgRegistrationRejected = "Registration failed"
	MsgLoggedOut            = "Logged out successfully"

	MsgFormIncomplete  = "Please fill all fields and upload at least one image"
	MsgUploadFailed    = "Image upload failed"
	MsgPostCreated     = "Post created successfully!"
	MsgCreateFailed    = "Failed to create post"
	MsgSomethingWrong  = "Something went wrong"
	MsgPostUpdated     = "Post updated successfully!"
	MsgUpdateFailed    = "Update failed"
	MsgUpdateWentWrong = "Something went wrong while updating"
	MsgPostDeleted     = "Post deleted successfully"
	MsgDeleteFailed    = "Delete failed"
	MsgInvalidForm     = "Invalid form data"
	MsgFetchProducts   = "Failed to fetch products"
	MsgFetchDashboard  = "Failed to fetch dashboard data"
	MsgFetchUsers      = "Failed to fetch users"
	MsgFetchEvents     = "Failed to load activity log"
)
